package dispatcher

import (
	"context"
	"sync"
	"time"
)

type JobPriority uint8

const (
	PriorityLow JobPriority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

type Job struct {
	Ctx      context.Context
	Request  *Request
	Future   *Future
	Enqueued time.Time
}

// JobQueue hands out the oldest job of the highest non-empty priority.
// Every accepted job puts one token on Ready, so a worker that receives a
// token is guaranteed a job.
type JobQueue struct {
	mu       sync.Mutex
	lanes    [PriorityCritical + 1][]*Job
	size     int
	capacity int
	ready    chan struct{}
}

func NewJobQueue(capacity int) *JobQueue {
	return &JobQueue{
		capacity: capacity,
		ready:    make(chan struct{}, capacity),
	}
}

func (q *JobQueue) Enqueue(job *Job) bool {
	q.mu.Lock()
	if q.size >= q.capacity {
		q.mu.Unlock()
		return false
	}
	p := job.Request.Priority
	if p > PriorityCritical {
		p = PriorityCritical
	}
	q.lanes[p] = append(q.lanes[p], job)
	q.size++
	q.mu.Unlock()

	q.ready <- struct{}{}
	return true
}

func (q *JobQueue) Dequeue() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for p := len(q.lanes) - 1; p >= 0; p-- {
		if len(q.lanes[p]) > 0 {
			job := q.lanes[p][0]
			q.lanes[p][0] = nil
			q.lanes[p] = q.lanes[p][1:]
			q.size--
			return job, true
		}
	}
	return nil, false
}

func (q *JobQueue) Ready() <-chan struct{} {
	return q.ready
}

func (q *JobQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
