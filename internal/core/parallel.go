package core

import (
	"context"
	"sync"
)

// forEachLimit runs fn(i) over i in [0, n) using up to workers goroutines.
// Work is distributed by striding. Workers stop picking up items once ctx is done.
func forEachLimit(ctx context.Context, n, workers int, fn func(i int)) {
	if n <= 0 {
		return
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		w := w
		go func() {
			defer wg.Done()
			for i := w; i < n && ctx.Err() == nil; i += workers {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
