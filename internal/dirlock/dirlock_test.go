package dirlock

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestAcquire_Exclusive(t *testing.T) {
	lockDir := filepath.Join(t.TempDir(), "locks")
	inputDir := t.TempDir()

	first, err := Acquire(lockDir, inputDir)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	// flock locks are per open file description, so a second handle in the
	// same process conflicts just like another process would.
	if _, err := Acquire(lockDir, inputDir); !errors.Is(err, ErrLocked) {
		t.Fatalf("second Acquire() error = %v, want ErrLocked", err)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	again, err := Acquire(lockDir, inputDir)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	_ = again.Release()
}

func TestAcquire_DistinctDirectories(t *testing.T) {
	lockDir := t.TempDir()

	a, err := Acquire(lockDir, t.TempDir())
	if err != nil {
		t.Fatalf("Acquire(a) error = %v", err)
	}
	defer a.Release()

	b, err := Acquire(lockDir, t.TempDir())
	if err != nil {
		t.Fatalf("Acquire(b) error = %v", err)
	}
	defer b.Release()

	if a.Path() == b.Path() {
		t.Errorf("lock paths collide: %s", a.Path())
	}
}

func TestLockPath(t *testing.T) {
	got := LockPath("/var/lock/sfpoll", "/data/in")
	if filepath.Dir(got) != filepath.Clean("/var/lock/sfpoll") {
		t.Errorf("LockPath() dir = %s", filepath.Dir(got))
	}
	base := filepath.Base(got)
	if !strings.HasSuffix(base, ".lock") || strings.ContainsAny(strings.TrimSuffix(base, ".lock"), `/\`) {
		t.Errorf("LockPath() base = %s", base)
	}
	if base != "-data-in.lock" {
		t.Errorf("LockPath() base = %s, want -data-in.lock", base)
	}
}
