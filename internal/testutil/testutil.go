// Package testutil provides shared test utilities and mocks for sfpoll tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/brianly1003/sfpoll/internal/domain"
	"github.com/brianly1003/sfpoll/internal/domain/ports"
)

// MockValidator implements ports.FileValidator for testing.
type MockValidator struct {
	mu       sync.Mutex
	results  map[string][]bool
	fallback bool
	calls    map[string]int
	checkFn  func(path string) bool
}

// NewMockValidator creates a validator that returns fallback for every path
// without scripted results.
func NewMockValidator(fallback bool) *MockValidator {
	return &MockValidator{
		results:  make(map[string][]bool),
		fallback: fallback,
		calls:    make(map[string]int),
	}
}

// Script queues results for the file with the given base name. Each call
// consumes one result; once exhausted the fallback applies.
func (m *MockValidator) Script(name string, results ...bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[name] = append(m.results[name], results...)
}

// SetCheckFunc sets a custom function deciding each check.
func (m *MockValidator) SetCheckFunc(fn func(path string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkFn = fn
}

// CheckFile returns the next scripted result for path.
func (m *MockValidator) CheckFile(ctx context.Context, path string, params any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := filepath.Base(path)
	m.calls[name]++

	if m.checkFn != nil {
		return m.checkFn(path)
	}
	if queued := m.results[name]; len(queued) > 0 {
		m.results[name] = queued[1:]
		return queued[0]
	}
	return m.fallback
}

// Calls returns how often the file with the given base name was checked.
func (m *MockValidator) Calls(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

var _ ports.FileValidator = (*MockValidator)(nil)

// ProcessCall records one ProcessFile invocation.
type ProcessCall struct {
	Path      string
	OutputDir string
	Params    any
}

// MockProcessor implements ports.FileProcessor for testing. By default it
// writes "<name>.done" containing the input path into the output directory.
type MockProcessor struct {
	mu        sync.Mutex
	calls     []ProcessCall
	failures  map[string]error
	processFn func(path, outputDir string) ([]string, error)
}

// NewMockProcessor creates a new mock processor.
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{failures: make(map[string]error)}
}

// FailOn makes processing of the file with the given base name return err.
func (m *MockProcessor) FailOn(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[name] = err
}

// SetProcessFunc replaces the default behavior.
func (m *MockProcessor) SetProcessFunc(fn func(path, outputDir string) ([]string, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processFn = fn
}

// ProcessFile records the call and produces the configured result.
func (m *MockProcessor) ProcessFile(ctx context.Context, path, outputDir string, params any) ([]string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ProcessCall{Path: path, OutputDir: outputDir, Params: params})
	fn := m.processFn
	failure := m.failures[filepath.Base(path)]
	m.mu.Unlock()

	if failure != nil {
		return nil, failure
	}
	if fn != nil {
		return fn(path, outputDir)
	}

	out := filepath.Join(outputDir, filepath.Base(path)+".done")
	if err := os.WriteFile(out, []byte(path), 0o644); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

// Calls returns all recorded calls.
func (m *MockProcessor) Calls() []ProcessCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ProcessCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of recorded calls.
func (m *MockProcessor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var _ ports.FileProcessor = (*MockProcessor)(nil)

// MockNotifier implements ports.DirectoryNotifier for testing. Events are
// injected with Emit.
type MockNotifier struct {
	mu       sync.Mutex
	dir      string
	onCreate func(path string)
	running  bool
	starts   int
	stops    int
	startErr error
	started  chan struct{}
}

// NewMockNotifier creates a new mock notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{started: make(chan struct{}, 1)}
}

// SetStartError configures an error to return on Start.
func (m *MockNotifier) SetStartError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
}

// Start records the watched directory and callback.
func (m *MockNotifier) Start(ctx context.Context, dir string, onCreate func(path string)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.startErr != nil {
		return m.startErr
	}
	if m.running {
		return domain.ErrNotifierRunning
	}
	m.dir = dir
	m.onCreate = onCreate
	m.running = true
	m.starts++

	select {
	case m.started <- struct{}{}:
	default:
	}
	return nil
}

// Started returns a channel that receives a value when Start succeeds.
func (m *MockNotifier) Started() <-chan struct{} {
	return m.started
}

// Stop marks the notifier as stopped.
func (m *MockNotifier) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		m.running = false
		m.stops++
	}
	return nil
}

// IsRunning returns true between Start and Stop.
func (m *MockNotifier) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Emit delivers a creation event if the notifier is running.
func (m *MockNotifier) Emit(path string) {
	m.mu.Lock()
	fn := m.onCreate
	running := m.running
	m.mu.Unlock()

	if running && fn != nil {
		fn(path)
	}
}

// Dir returns the watched directory.
func (m *MockNotifier) Dir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dir
}

// Counts returns how often Start and Stop took effect.
func (m *MockNotifier) Counts() (starts, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.stops
}

var _ ports.DirectoryNotifier = (*MockNotifier)(nil)

// MockRecorder implements ports.ProcessingRecorder for testing.
type MockRecorder struct {
	mu      sync.Mutex
	records []domain.ProcessingRecord
	err     error
}

// NewMockRecorder creates a new mock recorder.
func NewMockRecorder() *MockRecorder {
	return &MockRecorder{}
}

// SetError configures an error to return on Record.
func (m *MockRecorder) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Record stores rec.
func (m *MockRecorder) Record(ctx context.Context, rec domain.ProcessingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns all stored records.
func (m *MockRecorder) Records() []domain.ProcessingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.ProcessingRecord, len(m.records))
	copy(result, m.records)
	return result
}

var _ ports.ProcessingRecorder = (*MockRecorder)(nil)

// WriteFiles creates each named file in dir with its name as content.
func WriteFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

// ListDir returns the sorted names of the regular files in dir.
func ListDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// AssertExists fails the test if dir/name does not exist.
func AssertExists(t *testing.T, dir, name string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("%s should exist in %s: %v", name, dir, err)
	}
}

// AssertMissing fails the test if dir/name exists.
func AssertMissing(t *testing.T, dir, name string) {
	t.Helper()
	if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
		t.Errorf("%s should not exist in %s", name, dir)
	}
}

// AssertEqual is a simple equality assertion helper.
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertNoError asserts that an error is nil.
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertContains checks if a string contains a substring.
func AssertContains(t *testing.T, s, substr, msg string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("%s: string %q does not contain %q", msg, s, substr)
	}
}
