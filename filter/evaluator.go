package filter

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/fetchr/jsonobj"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of worker goroutines
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.workerCount = workers
	}
}

// WithBatchSize sets the batch size for chunked processing
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		e.batchSize = size
	}
}

// ConcurrentEvaluator implements both Evaluator and BatchEvaluator interfaces
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
	pool        WorkerPool
}

// Ensure ConcurrentEvaluator implements both interfaces at compile time.
var (
	_ Evaluator      = (*ConcurrentEvaluator)(nil)
	_ BatchEvaluator = (*ConcurrentEvaluator)(nil)
)

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.workerCount <= 0 {
		e.workerCount = 1
	}
	if e.batchSize <= 0 {
		e.batchSize = 1
	}

	e.pool = NewWorkerPool(e.workerCount)

	return e
}

// Evaluate evaluates a single filter against all elements, preserving order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, items []*jsonobj.Object) ([]*jsonobj.Object, error) {
	if len(items) == 0 {
		return []*jsonobj.Object{}, nil
	}

	// Small inputs and filters that must not run concurrently stay sequential
	if len(items) < e.batchSize || !filter.IsThreadSafe() {
		return evaluateSequential(filter, items), nil
	}

	return e.evaluateConcurrent(ctx, filter, items)
}

// EvaluateBatch evaluates multiple filters against elements concurrently.
// Filters that fail are left out of the result.
func (e *ConcurrentEvaluator) EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, items []*jsonobj.Object) (map[string][]*jsonobj.Object, error) {
	results := make(map[string][]*jsonobj.Object, len(filters))
	if len(filters) == 0 || len(items) == 0 {
		return results, nil
	}

	resultChan := make(chan BatchResult, len(filters))

	// Filters fan out on plain goroutines; their chunks go through the pool,
	// which therefore never waits on itself
	var g errgroup.Group
	for name, filter := range filters {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				resultChan <- BatchResult{FilterName: name, Error: err}
				return nil
			}

			matches, err := e.Evaluate(ctx, filter, items)
			resultChan <- BatchResult{
				FilterName: name,
				Matches:    matches,
				Error:      err,
			}
			return nil
		})
	}

	_ = g.Wait()
	close(resultChan)

	for result := range resultChan {
		if result.Error != nil {
			continue
		}
		results[result.FilterName] = result.Matches
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// evaluateSequential evaluates a filter against all elements sequentially
func evaluateSequential(filter CompiledFilter, items []*jsonobj.Object) []*jsonobj.Object {
	matches := make([]*jsonobj.Object, 0, len(items)/4)
	for _, item := range items {
		if filter.Evaluate(item) {
			matches = append(matches, item)
		}
	}
	return matches
}

// evaluateConcurrent splits items into chunks evaluated on the worker pool
func (e *ConcurrentEvaluator) evaluateConcurrent(ctx context.Context, filter CompiledFilter, items []*jsonobj.Object) ([]*jsonobj.Object, error) {
	chunkSize := max(len(items)/e.workerCount, e.batchSize)
	chunks := (len(items) + chunkSize - 1) / chunkSize

	// Each chunk writes only its own slot
	chunkMatches := make([][]*jsonobj.Object, chunks)
	var wg sync.WaitGroup

	for index := 0; index < chunks; index++ {
		start := index * chunkSize
		end := min(start+chunkSize, len(items))
		chunk := items[start:end]

		wg.Add(1)
		err := e.pool.Submit(ctx, func() {
			defer wg.Done()

			if ctx.Err() != nil {
				return
			}
			chunkMatches[index] = evaluateSequential(filter, chunk)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, m := range chunkMatches {
		total += len(m)
	}

	allMatches := make([]*jsonobj.Object, 0, total)
	for _, m := range chunkMatches {
		allMatches = append(allMatches, m...)
	}

	return allMatches, nil
}

// Stop gracefully stops the evaluator's worker pool
func (e *ConcurrentEvaluator) Stop(ctx context.Context) error {
	return e.pool.Stop(ctx)
}
