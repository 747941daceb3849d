package engine

import (
	"time"
)

// Broker carries messages between the goroutines of the engine. Everything
// that changes session state travels through ToPlayer and is applied by the
// player goroutine, which is the only writer of that state. Engine and
// Daemon post to ToPlayer; nobody else reads from it.
//
// FinishedDaemon is closed when the daemon goroutine has exited. Nothing is
// ever sent on it; wait with TimeoutReceive to avoid hanging on exit.
type Broker struct {
	ToPlayer chan any

	FinishedDaemon chan struct{}
}

func NewBroker() *Broker {
	return &Broker{
		ToPlayer:       make(chan any, 1024),
		FinishedDaemon: make(chan struct{}),
	}
}

// TrySend sends v on c if c has room and reports whether it did. It never
// blocks.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutReceive blocks until a value arrives on c or t passes. ok is false
// on timeout or if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
