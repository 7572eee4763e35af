package poller

import "time"

// Stats is a snapshot of the poller's activity since the last Poll started.
type Stats struct {
	Mode        string    `json:"mode,omitempty"`
	Running     bool      `json:"running"`
	Busy        bool      `json:"busy"`
	Stopped     bool      `json:"stopped"`
	Cycles      int64     `json:"cycles"`
	Listed      int64     `json:"listed"`
	Processed   int64     `json:"processed"`
	Failed      int64     `json:"failed"`
	Expired     int64     `json:"expired"`
	Blacklisted int       `json:"blacklisted"`
	StartedAt   time.Time `json:"started_at,omitempty"`
	LastCycleAt time.Time `json:"last_cycle_at,omitempty"`
}

// Stats returns a snapshot of the poller's counters and liveness flags.
func (p *Poller) Stats() Stats {
	p.statsMu.RLock()
	s := p.stats
	p.statsMu.RUnlock()

	s.Busy = p.IsBusy()
	s.Stopped = p.IsStopped()
	return s
}

func (p *Poller) updateStats(fn func(*Stats)) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	fn(&p.stats)
}
