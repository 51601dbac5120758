package stage

import "sync"

type indexed[T any] struct {
	idx int
	val T
}

// runIndexedParallel executes fn for indices [0,n) using a worker pool and
// returns the results in index order.
func runIndexedParallel[T any](n, workers int, fn func(int) T) []T {
	if workers > n {
		workers = n
	}
	jobs := make(chan int)
	results := make(chan indexed[T])
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			results <- indexed[T]{idx: idx, val: fn(idx)}
		}
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go worker()
	}

	go func() {
		for i := 0; i < n; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	out := make([]T, n)
	for i := 0; i < n; i++ {
		r := <-results
		out[r.idx] = r.val
	}
	wg.Wait()
	return out
}
