package dispatcher

import (
	"go-guildevents/internal/logging"
)

type RESTWorker struct {
	jobQueue *JobQueue
	executor *RequestExecutor
	stop     chan struct{}
	workerID int
}

func NewRESTWorker(jobQueue *JobQueue, executor *RequestExecutor, workerID int) *RESTWorker {
	return &RESTWorker{
		jobQueue: jobQueue,
		executor: executor,
		stop:     make(chan struct{}),
		workerID: workerID,
	}
}

// Start runs the worker loop until Stop is called.
func (rw *RESTWorker) Start() {
	for {
		select {
		case <-rw.stop:
			return
		case <-rw.jobQueue.Ready():
			job, ok := rw.jobQueue.Dequeue()
			if !ok {
				continue
			}
			rw.executeJob(job)
		}
	}
}

func (rw *RESTWorker) executeJob(job *Job) {
	if err := job.Ctx.Err(); err != nil {
		job.Future.Resolve(nil, err)
		return
	}

	resp, err := rw.executor.Execute(job.Request)
	if err != nil {
		logging.Debug("[DISPATCHER] worker %d: %s failed: %v", rw.workerID, job.Request.Route.Path, err)
	}
	job.Future.Resolve(resp, err)
}

func (rw *RESTWorker) Stop() {
	close(rw.stop)
}
