package mailer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/taskapp/internal/logging"
)

const sendTimeout = 10 * time.Second

// Dispatcher forwards messages to a Sender on a background goroutine.
// Delivery errors are logged and otherwise ignored.
type Dispatcher struct {
	sender    Sender
	log       logging.Logger
	ch        chan Message
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closeOnce sync.Once

	// mu orders Enqueue against Close so nothing lands in ch after the
	// final drain.
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sender Sender, log logging.Logger, bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}

	d := &Dispatcher{
		sender: sender,
		log:    log,
		ch:     make(chan Message, bufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.log.Warn(ctx, "mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
	}
}

// Enqueue hands msg to the background worker without blocking. When the
// buffer is full the message is dropped.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) {
	if d == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	select {
	case d.ch <- msg:
	default:
		d.dropped.Add(1)
		d.log.Warn(ctx, "mail queue full, message dropped", "to", msg.To, "subject", msg.Subject)
	}
}

// Close stops accepting messages and waits until the queued ones are sent.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.done)
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
