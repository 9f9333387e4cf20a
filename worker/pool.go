package worker

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"imgshrink/intake"
	"imgshrink/session"
	"imgshrink/variant"
)

const (
	queueCapacity = 100
	jobTimeout    = 120 * time.Second
)

// Job is one generation request. The variants inside a job are computed
// strictly sequentially; the pool only isolates independent clients.
type Job struct {
	ClientID   string
	SessionID  string
	Source     *intake.SourceImage
	Selection  variant.Selection
	resultChan chan Result
}

type Result struct {
	Success          bool               `json:"success"`
	Message          string             `json:"message,omitempty"`
	Variants         []*variant.Variant `json:"-"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	CompletedAt      int64              `json:"completed_at"`
}

type Pool struct {
	workers  int
	gen      *variant.Generator
	store    *session.Store
	jobQueue chan Job
	wg       sync.WaitGroup
	stopChan chan struct{}

	// Statistics
	completedJobs int64
	failedJobs    int64
	queuedJobs    int64
}

func NewPool(workers int, gen *variant.Generator, store *session.Store) *Pool {
	return &Pool{
		workers:  workers,
		gen:      gen,
		store:    store,
		jobQueue: make(chan Job, queueCapacity),
		stopChan: make(chan struct{}),
	}
}

// Start spawns worker goroutines
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Printf("Worker pool started with %d workers, queue capacity: %d\n", p.workers, queueCapacity)
}

// Stop gracefully shuts down the worker pool
func (p *Pool) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.stopChan)
	log.Println("Worker pool stopped")
}

// SubmitAndWait submits a generation job and blocks until its result is
// ready or the timeout elapses.
func (p *Pool) SubmitAndWait(clientID, sessionID string, src *intake.SourceImage, sel variant.Selection) (Result, error) {
	resultChan := make(chan Result, 1)

	job := Job{
		ClientID:   clientID,
		SessionID:  sessionID,
		Source:     src,
		Selection:  sel,
		resultChan: resultChan,
	}

	select {
	case p.jobQueue <- job:
		atomic.AddInt64(&p.queuedJobs, 1)
		log.Printf("Job queued: client=%s, ratios=%d (queue size: %d/%d)",
			clientID, len(sel.Ratios), len(p.jobQueue), cap(p.jobQueue))
	case <-p.stopChan:
		return Result{}, fmt.Errorf("worker pool is shutting down")
	}

	select {
	case result := <-resultChan:
		return result, nil
	case <-time.After(jobTimeout):
		return Result{}, fmt.Errorf("job processing timeout (%s)", jobTimeout)
	case <-p.stopChan:
		return Result{}, fmt.Errorf("worker pool shutdown while processing")
	}
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()
	log.Printf("Worker %d started\n", workerID)

	for job := range p.jobQueue {
		log.Printf("Worker %d processing: client=%s, width_scale=%.2f",
			workerID, job.ClientID, job.Selection.WidthScale)

		result := p.processJob(job)

		select {
		case job.resultChan <- result:
		case <-time.After(5 * time.Second):
			log.Printf("Worker %d: client no longer waiting for result", workerID)
		}

		close(job.resultChan)
	}

	log.Printf("Worker %d stopped\n", workerID)
}

func (p *Pool) processJob(job Job) Result {
	startTime := time.Now()

	variants, err := p.gen.Generate(job.Source, job.Selection)
	if err != nil {
		atomic.AddInt64(&p.failedJobs, 1)
		return Result{
			Success:          false,
			Message:          err.Error(),
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
			CompletedAt:      time.Now().Unix(),
		}
	}

	// A re-upload during processing wins: the stale result is dropped.
	if !p.store.SetVariants(job.ClientID, job.SessionID, variants) {
		atomic.AddInt64(&p.failedJobs, 1)
		return Result{
			Success:          false,
			Message:          "session replaced while processing",
			ProcessingTimeMs: time.Since(startTime).Milliseconds(),
			CompletedAt:      time.Now().Unix(),
		}
	}

	atomic.AddInt64(&p.completedJobs, 1)

	return Result{
		Success:          true,
		Variants:         variants,
		ProcessingTimeMs: time.Since(startTime).Milliseconds(),
		CompletedAt:      time.Now().Unix(),
	}
}

// ============ Statistics ============
func (p *Pool) GetCompletedJobs() int64 {
	return atomic.LoadInt64(&p.completedJobs)
}

func (p *Pool) GetFailedJobs() int64 {
	return atomic.LoadInt64(&p.failedJobs)
}

func (p *Pool) GetQueuedJobs() int64 {
	return atomic.LoadInt64(&p.queuedJobs)
}

func (p *Pool) GetWorkerCount() int {
	return p.workers
}

func (p *Pool) GetQueueSize() int {
	return len(p.jobQueue)
}

func (p *Pool) GetQueueCapacity() int {
	return cap(p.jobQueue)
}
