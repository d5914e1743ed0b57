package transport

import "time"

// Timeout is a wait bound in milliseconds: Never blocks indefinitely,
// Instant returns immediately, any positive value waits that long.
type Timeout int

const (
	Never   Timeout = -1
	Instant Timeout = 0
)

// Milliseconds returns a Timeout of ms milliseconds.
func Milliseconds(ms int) Timeout {
	if ms < 0 {
		return Never
	}
	return Timeout(ms)
}

// TimeoutFromDuration rounds d up to whole milliseconds. Negative
// durations mean Never.
func TimeoutFromDuration(d time.Duration) Timeout {
	if d < 0 {
		return Never
	}
	ms := d / time.Millisecond
	if d%time.Millisecond != 0 {
		ms++
	}
	return Timeout(ms)
}

// Duration converts t to a time.Duration; Never maps to -1.
func (t Timeout) Duration() time.Duration {
	if t < 0 {
		return -1
	}
	return time.Duration(t) * time.Millisecond
}

func (t Timeout) IsNever() bool { return t < 0 }

func (t Timeout) String() string {
	switch {
	case t < 0:
		return "never"
	case t == 0:
		return "instant"
	default:
		return t.Duration().String()
	}
}
