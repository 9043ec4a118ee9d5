package queue

import (
	"context"
	"log"
	"time"
)

// Relayer forwards a command to the running server. Implementations drop
// commands when no server is live.
type Relayer interface {
	RelayFrom(source, command string) error
}

// Poller drains a queue file on a fixed interval and relays each command in
// order. Delivery is at-most-once: commands leave the file before they are
// relayed, so a failed or dropped relay is not retried.
type Poller struct {
	queue    *File
	relay    Relayer
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPoller(queue *File, relay Relayer, interval time.Duration) *Poller {
	return &Poller{queue: queue, relay: relay, interval: interval}
}

func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := p.DrainOnce(); err != nil {
					log.Printf("queue: %v", err)
				}
			}
		}
	}()

	log.Printf("Command queue poller started (%s, %s interval)", p.queue.Path(), p.interval)
}

// Stop halts the loop and waits for an in-flight drain to finish.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
}

// DrainOnce runs a single drain cycle and returns how many commands were
// handed to the relayer.
func (p *Poller) DrainOnce() (int, error) {
	commands, err := p.queue.Drain()
	if err != nil {
		return 0, err
	}
	for _, c := range commands {
		if err := p.relay.RelayFrom("queue", c); err != nil {
			log.Printf("queue: relay %q: %v", c, err)
		}
	}
	return len(commands), nil
}
