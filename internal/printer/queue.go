package printer

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Job statuses.
const (
	StatusQueued    = "queued"
	StatusPrinting  = "printing"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Job is one receipt queued for printing.
type Job struct {
	ID        string    `json:"id"`
	OrderID   int64     `json:"order_id"`
	Status    string    `json:"status"`
	Retries   int       `json:"retries"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	data []byte
}

// Queue runs print jobs through a Sender, retrying transient failures.
// Jobs live in memory; a restart drops them, which is acceptable for
// receipts that can always be reprinted from the order.
type Queue struct {
	mu   sync.Mutex
	jobs []*Job

	sender     Sender
	maxRetries int
	retryDelay time.Duration
	logger     *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue starts the single queue worker. Stop shuts it down.
func NewQueue(sender Sender, maxRetries int, logger *log.Logger) *Queue {
	if maxRetries < 1 {
		maxRetries = 3
	}
	if logger == nil {
		logger = log.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		sender:     sender,
		maxRetries: maxRetries,
		retryDelay: time.Second,
		logger:     logger.With("component", "printqueue"),
		ctx:        ctx,
		cancel:     cancel,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue encodes the rendered receipt once and queues it. The returned
// job id can be polled through Job.
func (q *Queue) Enqueue(orderID int64, img image.Image) string {
	job := &Job{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Status:    StatusQueued,
		CreatedAt: time.Now(),
		data:      EncodeReceipt(img),
	}

	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	q.logger.Info("print job queued", "job", job.ID, "order", orderID)
	return job.ID
}

// Job returns a snapshot of one job.
func (q *Queue) Job(id string) (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, j := range q.jobs {
		if j.ID == id {
			return *j, true
		}
	}
	return Job{}, false
}

// Jobs returns snapshots of every job, newest first.
func (q *Queue) Jobs() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, 0, len(q.jobs))
	for i := len(q.jobs) - 1; i >= 0; i-- {
		out = append(out, *q.jobs[i])
	}
	return out
}

// ClearFinished drops completed and failed jobs.
func (q *Queue) ClearFinished() {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.jobs[:0]
	for _, j := range q.jobs {
		if j.Status == StatusQueued || j.Status == StatusPrinting {
			kept = append(kept, j)
		}
	}
	q.jobs = kept
}

// Stop halts the worker after its current job.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processNext()
		}
	}
}

func (q *Queue) processNext() {
	q.mu.Lock()
	var job *Job
	for _, j := range q.jobs {
		if j.Status == StatusQueued {
			job = j
			job.Status = StatusPrinting
			break
		}
	}
	q.mu.Unlock()

	if job == nil {
		return
	}

	err := q.sender.Send(q.ctx, job.data)

	q.mu.Lock()
	if err == nil {
		job.Status = StatusCompleted
		job.Error = ""
		q.mu.Unlock()
		q.logger.Info("print job completed", "job", job.ID, "order", job.OrderID)
		return
	}

	job.Retries++
	job.Error = err.Error()
	if job.Retries >= q.maxRetries {
		job.Status = StatusFailed
		q.mu.Unlock()
		q.logger.Error("print job failed", "job", job.ID, "order", job.OrderID,
			"retries", job.Retries, "err", err)
		return
	}
	job.Status = StatusQueued
	q.mu.Unlock()

	q.logger.Warn("print job retrying", "job", job.ID, "order", job.OrderID,
		"attempt", job.Retries, "err", err)

	select {
	case <-q.ctx.Done():
	case <-time.After(q.retryDelay):
	}
}
