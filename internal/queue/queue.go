package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ScamRadar/internal/domain"
)

// Scanner performs one rate-limited external submission. Satisfied by
// the sandbox scan client.
type Scanner interface {
	Scan(ctx context.Context, url string) (*domain.SandboxResult, error)
}

// Stats is a point-in-time snapshot of queue activity.
type Stats struct {
	TotalQueued     int64
	TotalProcessed  int64
	TotalFailed     int64
	AverageScanTime time.Duration
	QueueLength     int
	Processing      bool
}

type outcome struct {
	result *domain.SandboxResult
	err    error
}

// Ticket is the completion handle for one enqueued URL. It settles
// exactly once, when the item is drained or the queue is cleared.
type Ticket struct {
	ID   uuid.UUID
	once sync.Once
	done chan outcome
}

func newTicket() *Ticket {
	return &Ticket{ID: uuid.New(), done: make(chan outcome, 1)}
}

func (t *Ticket) settle(result *domain.SandboxResult, err error) {
	t.once.Do(func() { t.done <- outcome{result: result, err: err} })
}

// Wait blocks until the item settles or ctx is cancelled.
func (t *Ticket) Wait(ctx context.Context) (*domain.SandboxResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-t.done:
		return out.result, out.err
	}
}

type item struct {
	url        string
	priority   int
	enqueuedAt time.Time
	seq        uint64
	ticket     *Ticket
}

// SubmissionQueue serializes and rate-limits external submissions. At
// most one drain goroutine runs per instance; it is the sole consumer
// of the pending list and the sole writer of the last-finished mark,
// which makes "one submission in flight" structural.
type SubmissionQueue struct {
	scanner  Scanner
	minDelay time.Duration
	logger   *slog.Logger
	baseCtx  context.Context

	mu           sync.Mutex
	pending      []*item
	draining     bool
	processing   bool
	lastFinished time.Time
	seq          uint64

	totalQueued    int64
	totalProcessed int64
	totalFailed    int64
	avgScan        time.Duration
}

// New builds a queue whose submissions are bounded by ctx. minDelay is
// enforced between the end of one submission and the start of the next.
func New(ctx context.Context, scanner Scanner, minDelay time.Duration, logger *slog.Logger) *SubmissionQueue {
	return &SubmissionQueue{
		scanner:  scanner,
		minDelay: minDelay,
		logger:   logger,
		baseCtx:  ctx,
	}
}

// Enqueue inserts the URL into the pending set ordered by (priority
// desc, enqueue time asc) and returns its completion handle. It never
// blocks the caller; the drain loop is started lazily.
func (q *SubmissionQueue) Enqueue(url string, priority int) *Ticket {
	it := &item{
		url:        url,
		priority:   priority,
		enqueuedAt: time.Now(),
		ticket:     newTicket(),
	}

	q.mu.Lock()
	q.seq++
	it.seq = q.seq
	q.totalQueued++
	q.pending = append(q.pending, it)
	sort.SliceStable(q.pending, func(i, j int) bool {
		if q.pending[i].priority != q.pending[j].priority {
			return q.pending[i].priority > q.pending[j].priority
		}
		return q.pending[i].seq < q.pending[j].seq
	})

	start := !q.draining
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	q.debug("enqueued", "url", url, "priority", priority, "id", it.ticket.ID)

	if start {
		go q.drain()
	}
	return it.ticket
}

// drain is the single consumer loop. It exits once the pending set is
// empty; the next Enqueue starts a fresh one.
func (q *SubmissionQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		it := q.pending[0]
		q.pending = q.pending[1:]
		wait := q.minDelay - time.Since(q.lastFinished)
		q.processing = true
		q.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-q.baseCtx.Done():
				timer.Stop()
			case <-timer.C:
			}
		}

		started := time.Now()
		result, err := q.scanner.Scan(q.baseCtx, it.url)
		elapsed := time.Since(started)

		q.mu.Lock()
		q.lastFinished = time.Now()
		q.processing = false
		if err != nil {
			q.totalFailed++
		} else {
			q.totalProcessed++
			// streaming mean, no stored duration history
			q.avgScan += (elapsed - q.avgScan) / time.Duration(q.totalProcessed)
		}
		q.mu.Unlock()

		if err != nil {
			q.debug("submission failed", "url", it.url, "error", err)
		} else {
			q.debug("submission settled", "url", it.url, "state", result.State, "elapsed", elapsed)
		}
		it.ticket.settle(result, err)
	}
}

// ClearQueue rejects every still-pending item with a cancellation error
// and empties the pending set. A submission already handed to the
// scanner is not cancelled retroactively.
func (q *SubmissionQueue) ClearQueue() {
	q.mu.Lock()
	cleared := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, it := range cleared {
		it.ticket.settle(nil, domain.ErrQueueCancelled)
	}
	if len(cleared) > 0 {
		q.debug("queue cleared", "rejected", len(cleared))
	}
}

// IsQueued reports whether the URL is still waiting in the pending set.
func (q *SubmissionQueue) IsQueued(url string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, it := range q.pending {
		if it.url == url {
			return true
		}
	}
	return false
}

// Stats snapshots queue counters.
func (q *SubmissionQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		TotalQueued:     q.totalQueued,
		TotalProcessed:  q.totalProcessed,
		TotalFailed:     q.totalFailed,
		AverageScanTime: q.avgScan,
		QueueLength:     len(q.pending),
		Processing:      q.processing,
	}
}

func (q *SubmissionQueue) debug(msg string, args ...any) {
	if q.logger != nil {
		q.logger.Debug(msg, args...)
	}
}
