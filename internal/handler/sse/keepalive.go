package sse

import (
	"sync"
	"time"
)

// KeepAliveWriter writes a single keep-alive frame
type KeepAliveWriter interface {
	WriteKeepAlive() error
}

// Pinger writes keep-alive frames on a fixed interval. It stops on Stop or
// on the first failed write, after which Err reports the failure.
type Pinger struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	err      error
}

// StartPinger begins pinging w every interval
func StartPinger(w KeepAliveWriter, interval time.Duration) *Pinger {
	p := &Pinger{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				if err := w.WriteKeepAlive(); err != nil {
					p.err = err
					return
				}
			}
		}
	}()

	return p
}

// Done closes once the pinger has exited
func (p *Pinger) Done() <-chan struct{} { return p.done }

// Err is the write failure that ended pinging. Only valid after Done closes.
func (p *Pinger) Err() error {
	<-p.done
	return p.err
}

// Stop ends pinging and waits for the goroutine to exit
func (p *Pinger) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}
