package interceptor

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/onflow/relay-node/model/messages"
)

// emission is a message scheduled to be emitted in one direction.
type emission struct {
	due       time.Time
	seq       uint64
	direction Direction
	msg       messages.Message
}

// emissionQueue is a min-heap of emissions ordered by due time, then by scheduling order.
type emissionQueue []*emission

func (q emissionQueue) Len() int { return len(q) }

func (q emissionQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].seq < q[j].seq
	}
	return q[i].due.Before(q[j].due)
}

func (q emissionQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *emissionQueue) Push(x interface{}) {
	*q = append(*q, x.(*emission))
}

func (q *emissionQueue) Pop() interface{} {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return e
}

// emitFunc delivers one emission. It blocks until delivered or ctx is done.
type emitFunc func(ctx context.Context, direction Direction, msg messages.Message) error

// delayLine emits scheduled messages when they fall due, from a single goroutine.
// Emissions never block traffic that is not delayed. Pending emissions are abandoned
// when the line stops.
type delayLine struct {
	mu    sync.Mutex
	queue emissionQueue
	seq   uint64
	wake  chan struct{}
	emit  emitFunc
	now   func() time.Time
}

func newDelayLine(emit emitFunc) *delayLine {
	return &delayLine{
		wake: make(chan struct{}, 1),
		emit: emit,
		now:  time.Now,
	}
}

// schedule queues msg to be emitted after delay.
func (d *delayLine) schedule(delay time.Duration, direction Direction, msg messages.Message) {
	d.mu.Lock()
	d.seq++
	heap.Push(&d.queue, &emission{
		due:       d.now().Add(delay),
		seq:       d.seq,
		direction: direction,
		msg:       msg,
	})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// pending returns the number of emissions not yet emitted.
func (d *delayLine) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// next pops the first emission if it is due. Otherwise it returns the time until the
// first emission is due, or a negative duration if the line is empty.
func (d *delayLine) next() (*emission, time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue.Len() == 0 {
		return nil, -1
	}
	wait := d.queue[0].due.Sub(d.now())
	if wait > 0 {
		return nil, wait
	}
	return heap.Pop(&d.queue).(*emission), 0
}

// run emits due messages until ctx is done or an emission fails.
// Returns nil once ctx is done.
func (d *delayLine) run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		e, wait := d.next()
		if e != nil {
			err := d.emit(ctx, e.direction, e.msg)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			continue
		}

		var timeout <-chan time.Time
		if wait > 0 {
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(wait)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			return nil
		case <-d.wake:
		case <-timeout:
		}
	}
}
