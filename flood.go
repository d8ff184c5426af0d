package irc

import (
	"io"
	"sync"
	"time"

	"github.com/coldwire/irc/metrics"
)

// floodQueue implements the outgoing flood-prevention bucket: up
// to policy.BucketSize messages write through immediately; once the bucket
// is full, further messages queue and are released one at a time at
// policy.ReleaseRate as the bucket drains. Messages beyond
// policy.MaxQueueSize are dropped rather than queued further.
type floodQueue struct {
	policy FloodPolicy
	conn io.Writer
	logErr func(error)
	serverKey string

	mu sync.Mutex
	level int
	pending [][]byte

	ticker *time.Ticker
	done chan struct{}
}

func newFloodQueue(policy FloodPolicy, conn io.Writer, logErr func(error)) *floodQueue {
	if policy.ReleaseRate <= 0 {
		policy.ReleaseRate = time.Second
	}
	if policy.BucketSize <= 0 {
		policy.BucketSize = 1
	}
	fq := &floodQueue{
		policy: policy,
		conn: conn,
		logErr: logErr,
		done: make(chan struct{}),
		ticker: time.NewTicker(policy.ReleaseRate),
	}
	go fq.run()
	return fq
}

// Enqueue writes b immediately if the bucket has room, or appends it to the
// pending queue for release on the next tick. It reports false when b was
// dropped because the pending queue was already at MaxQueueSize.
func (fq *floodQueue) Enqueue(b []byte) bool {
	fq.mu.Lock()

	if len(fq.pending) == 0 && fq.level < fq.policy.BucketSize {
		fq.level++
		fq.mu.Unlock()
		fq.write(b)
		return true
	}

	if fq.policy.MaxQueueSize > 0 && len(fq.pending) >= fq.policy.MaxQueueSize {
		fq.mu.Unlock()
		metrics.FloodDropsTotal.WithLabelValues(fq.serverKey).Inc()
		return false
	}
	fq.pending = append(fq.pending, b)
	depth := len(fq.pending)
	fq.mu.Unlock()
	metrics.FloodQueueDepth.WithLabelValues(fq.serverKey).Set(float64(depth))
	return true
}

func (fq *floodQueue) write(b []byte) {
	if _, err := fq.conn.Write(b); err != nil {
		fq.logErr(err)
	}
}

func (fq *floodQueue) run() {
	defer fq.ticker.Stop()
	for {
		select {
		case <-fq.done:
			return
		case <-fq.ticker.C:
			fq.mu.Lock()
			if fq.level > 0 {
				fq.level--
			}
			var next []byte
			if len(fq.pending) > 0 {
				next = fq.pending[0]
				fq.pending = fq.pending[1:]
				fq.level++
			}
			depth := len(fq.pending)
			fq.mu.Unlock()

			metrics.FloodQueueDepth.WithLabelValues(fq.serverKey).Set(float64(depth))
			if next != nil {
				fq.write(next)
			}
		}
	}
}

// Stop() releases the floodQueue's background ticker goroutine. Any messages
// still pending are discarded.
func (fq *floodQueue) Stop() {
	close(fq.done)
}
