package transport

import (
	"sync"

	"golang.org/x/sys/unix"
)

// Process-wide socket layer state. Unix socket stacks need no startup
// handshake; Init raises the soft descriptor limit to the hard limit since
// every connection holds one descriptor for its whole lifetime, and
// Shutdown puts the original limit back.
var platform struct {
	mu          sync.Mutex
	initialized bool
	saved       unix.Rlimit
	raised      bool
}

// Init prepares the process for socket use. Calling it more than once is a no-op.
func Init() error {
	platform.mu.Lock()
	defer platform.mu.Unlock()

	if platform.initialized {
		return nil
	}

	var rlim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlim); err == nil {
		platform.saved = rlim
		if rlim.Cur < rlim.Max {
			raised := rlim
			raised.Cur = rlim.Max
			// Some systems reject an unlimited soft limit; keep the old one then.
			platform.raised = unix.Setrlimit(unix.RLIMIT_NOFILE, &raised) == nil
		}
	}

	platform.initialized = true
	return nil
}

// Shutdown undoes Init. Calling it without Init, or twice, is a no-op.
func Shutdown() error {
	platform.mu.Lock()
	defer platform.mu.Unlock()

	if !platform.initialized {
		return nil
	}

	var err error
	if platform.raised {
		err = unix.Setrlimit(unix.RLIMIT_NOFILE, &platform.saved)
		platform.raised = false
	}
	platform.initialized = false
	return err
}

// Initialized reports whether Init has been called without a matching Shutdown.
func Initialized() bool {
	platform.mu.Lock()
	defer platform.mu.Unlock()
	return platform.initialized
}
