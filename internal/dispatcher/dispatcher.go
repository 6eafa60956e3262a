package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"go-guildevents/internal/logging"
	"go-guildevents/internal/metrics"
)

type Options struct {
	BaseURL   string
	Token     string
	PoolSize  int
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Metrics   *metrics.Registry
	// Dial replaces the network dialer; tests point it at an in-memory listener.
	Dial fasthttp.DialFunc
}

// Dispatcher is the remote action executor: Submit queues a request and
// returns at once, workers perform it and resolve the Future.
type Dispatcher struct {
	jobQueue    *JobQueue
	httpPool    *HTTPPool
	rateLimiter *RateLimitMonitor
	executor    *RequestExecutor
	workers     []*RESTWorker
	baseURL     string

	mu      sync.RWMutex
	running bool
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}

	httpPool := NewHTTPPool(opts.PoolSize, opts.Timeout, opts.Dial)
	rateLimiter := NewRateLimitMonitor()
	executor := NewRequestExecutor(httpPool, rateLimiter, opts.Metrics, opts.BaseURL, opts.Token, opts.Timeout)
	jobQueue := NewJobQueue(opts.QueueSize)

	workers := make([]*RESTWorker, opts.Workers)
	for i := range workers {
		workers[i] = NewRESTWorker(jobQueue, executor, i)
	}

	return &Dispatcher{
		jobQueue:    jobQueue,
		httpPool:    httpPool,
		rateLimiter: rateLimiter,
		executor:    executor,
		workers:     workers,
		baseURL:     opts.BaseURL,
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running || d.stopped {
		return
	}
	d.running = true

	for _, worker := range d.workers {
		d.wg.Add(1)
		go func(w *RESTWorker) {
			defer d.wg.Done()
			w.Start()
		}(worker)
	}
	logging.Info("[DISPATCHER] started %d REST workers", len(d.workers))
}

// Stop halts the workers and fails whatever is still queued with ErrStopped.
// A stopped dispatcher does not start again.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.stopped = true
	d.mu.Unlock()

	for _, worker := range d.workers {
		worker.Stop()
	}
	d.wg.Wait()

	for {
		job, ok := d.jobQueue.Dequeue()
		if !ok {
			break
		}
		job.Future.Resolve(nil, ErrStopped)
	}
}

func (d *Dispatcher) Submit(ctx context.Context, req *Request) *Future {
	if err := ctx.Err(); err != nil {
		return CompletedFuture(nil, err)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.running {
		return CompletedFuture(nil, ErrStopped)
	}

	job := &Job{
		Ctx:      ctx,
		Request:  req,
		Future:   NewFuture(),
		Enqueued: time.Now(),
	}
	if !d.jobQueue.Enqueue(job) {
		return CompletedFuture(nil, ErrQueueFull)
	}
	return job.Future
}

func (d *Dispatcher) Warmup() bool {
	return d.httpPool.Warmup(d.baseURL)
}

func (d *Dispatcher) QueueSize() int {
	return d.jobQueue.Size()
}
