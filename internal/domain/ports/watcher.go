package ports

import "context"

// DirectoryNotifier defines the contract for file-creation monitoring of a
// single directory.
type DirectoryNotifier interface {
	// Start begins watching dir. onCreate is invoked from the notifier's own
	// goroutine once per created file.
	Start(ctx context.Context, dir string, onCreate func(path string)) error

	// Stop terminates watching and waits for the notifier goroutines to exit.
	Stop() error

	// IsRunning returns true if the notifier is active.
	IsRunning() bool
}
