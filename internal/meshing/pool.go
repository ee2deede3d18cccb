package meshing

import (
	"context"
	"sync"

	"voxelworld/internal/profiling"
	"voxelworld/internal/world"
)

// MeshJob represents a meshing job request
type MeshJob struct {
	Coord world.SectionCoord
	// Result channel - will be sent the result when done
	ResultChan chan Result
}

// WorkerPool builds section meshes on several goroutines. Callers must not
// write voxels while jobs are in flight.
type WorkerPool struct {
	mesher   *Mesher
	jobQueue chan MeshJob
	workers  int
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new mesh worker pool
func NewWorkerPool(mesher *Mesher, workers int, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	workers = max(workers, 1)

	pool := &WorkerPool{
		mesher:   mesher,
		jobQueue: make(chan MeshJob, queueSize),
		workers:  workers,
		ctx:      ctx,
		cancel:   cancel,
	}

	for i := range workers {
		pool.wg.Add(1)
		go pool.worker(i)
	}

	return pool
}

// SubmitJobBlocking submits a job and blocks until it's queued. Returns false
// once the pool is shut down.
func (p *WorkerPool) SubmitJobBlocking(job MeshJob) bool {
	select {
	case p.jobQueue <- job:
		return true
	case <-p.ctx.Done():
		return false
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			result := p.mesher.Build(job.Coord)
			select {
			case job.ResultChan <- result:
			case <-p.ctx.Done():
				return
			}

		case <-p.ctx.Done():
			return
		}
	}
}

// BuildBatch meshes every coordinate and blocks until all results are in.
// Results come back in input order. Jobs that cannot be queued after
// shutdown are built on the calling goroutine.
func (p *WorkerPool) BuildBatch(coords []world.SectionCoord) []Result {
	defer profiling.Track("meshing.BuildBatch")()
	results := make([]Result, len(coords))
	if len(coords) == 0 {
		return results
	}

	pos := make(map[world.SectionCoord]int, len(coords))
	done := make([]bool, len(coords))
	ch := make(chan Result, len(coords))
	queued := 0
	for i, sc := range coords {
		pos[sc] = i
		if p.SubmitJobBlocking(MeshJob{Coord: sc, ResultChan: ch}) {
			queued++
		} else {
			results[i] = p.mesher.Build(sc)
			done[i] = true
		}
	}
	for range queued {
		select {
		case r := <-ch:
			i := pos[r.Coord]
			results[i] = r
			done[i] = true
		case <-p.ctx.Done():
			// Workers may have exited mid-batch
			for i, sc := range coords {
				if !done[i] {
					results[i] = p.mesher.Build(sc)
				}
			}
			return results
		}
	}
	return results
}

// Shutdown stops the workers and waits for them to exit.
func (p *WorkerPool) Shutdown() {
	p.cancel()
	p.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (p *WorkerPool) Workers() int {
	return p.workers
}
