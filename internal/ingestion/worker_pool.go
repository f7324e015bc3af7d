package ingestion

import "sync"

// jobItem is one dispatched task's position in the batch.
type jobItem struct {
	index int
}

// resultItem is the outcome of one jobItem.
type resultItem struct {
	index int
	err   error
}

// workerPool runs a batch of independent tasks across a bounded set of
// goroutines, the same jobs/results-channel shape as the reference stack's
// evaluation worker pool: buffered channels sized to the batch, a
// sync.WaitGroup, and min(numWorkers, numJobs) actual goroutines.
type workerPool struct {
	numWorkers int
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = 5
	}
	return &workerPool{numWorkers: numWorkers}
}

// run invokes runOne(i) for every i in [0,n), returning each call's error
// in input order. Task i's identity (which instrument, which symbol) is
// the caller's concern, closed over in runOne.
func (wp *workerPool) run(n int, runOne func(i int) error) []error {
	if n == 0 {
		return nil
	}

	jobs := make(chan jobItem, n)
	results := make(chan resultItem, n)

	actual := wp.numWorkers
	if n < actual {
		actual = n
	}

	var wg sync.WaitGroup
	for w := 0; w < actual; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- resultItem{index: job.index, err: runOne(job.index)}
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- jobItem{index: i}
	}
	close(jobs)

	wg.Wait()
	close(results)

	out := make([]error, n)
	for r := range results {
		out[r.index] = r.err
	}
	return out
}
