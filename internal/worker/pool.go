package worker

import (
	"context"
	"sync"
)

// Pool runs project jobs on a fixed number of workers
type Pool struct {
	workers int
	ctx     context.Context
}

// NewPool creates a pool of workers whose jobs run under ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	return &Pool{workers: workers, ctx: ctx}
}

// Run executes jobs and returns one slot per job, in job order. Once ctx
// ends no further job is started and the slots of jobs never started stay nil.
func (p *Pool) Run(jobs []*ProjectJob) []*ProjectResult {
	results := make([]*ProjectResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	workers := p.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	next := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				// Each worker writes only the slots it received
				results[i] = jobs[i].Execute(p.ctx)
			}
		}()
	}

feed:
	for i := range jobs {
		if p.ctx.Err() != nil {
			break
		}
		select {
		case <-p.ctx.Done():
			break feed
		case next <- i:
		}
	}
	close(next)
	wg.Wait()

	return results
}
