package geomproc

import "sync"

// Job is one unit of normal-computation work submitted to a Pool.
type Job struct {
	Positions []float32
	Indices   []uint16
	Colors    []float32
	Flat      bool // true selects Deindexed output, false IndexedNormals
}

// Result is what a Job produces.
type Result struct {
	Positions []float32
	Colors    []float32
	Normals   []float32
}

// Pool runs geometry-processing jobs on a small fixed set of worker
// goroutines reading off a shared queue: a buffered channel plus N
// worker() goroutines draining it.
type Pool struct {
	jobs chan poolJob
	wg   sync.WaitGroup
}

type poolJob struct {
	job    Job
	result chan<- Result
}

// NewPool starts a Pool with the given number of worker goroutines and
// queue depth.
func NewPool(workers, queueDepth int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueDepth < 1 {
		queueDepth = workers
	}
	p := &Pool{jobs: make(chan poolJob, queueDepth)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for pj := range p.jobs {
		pj.result <- process(pj.job)
	}
}

func process(j Job) Result {
	if j.Flat {
		pos, col, norm := Deindexed(j.Positions, j.Colors, j.Indices)
		return Result{Positions: pos, Colors: col, Normals: norm}
	}
	return Result{
		Positions: j.Positions,
		Colors:    j.Colors,
		Normals:   IndexedNormals(j.Positions, j.Indices),
	}
}

// Process runs a job synchronously, for callers that don't have a Pool to
// dispatch through.
func Process(j Job) Result {
	return process(j)
}

// Submit enqueues a job and returns a channel that receives its single
// Result once a worker processes it.
func (p *Pool) Submit(job Job) <-chan Result {
	result := make(chan Result, 1)
	p.jobs <- poolJob{job: job, result: result}
	return result
}

// Close stops accepting new jobs and waits for in-flight work to drain.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
