package filter

import (
	"context"

	"github.com/s0up4200/fetchr/jsonobj"
)

// Filter defines the basic interface for element filters
type Filter interface {
	// Evaluate checks if an element matches the filter criteria. Elements
	// that fail to evaluate never match.
	Evaluate(item *jsonobj.Object) bool
}

// CompiledFilter represents a pre-compiled filter ready for evaluation
type CompiledFilter interface {
	Filter

	// Match is Evaluate with the evaluation error reported
	Match(item *jsonobj.Object) (bool, error)

	// Expression returns the original filter expression
	Expression() string

	// IsThreadSafe indicates if the filter can be evaluated concurrently
	IsThreadSafe() bool
}

// Compiler compiles filter expressions into executable filters
type Compiler interface {
	// Compile parses and compiles a filter expression
	Compile(expression string) (CompiledFilter, error)
}

// Evaluator evaluates filters against elements
type Evaluator interface {
	// Evaluate returns the matching elements in their original order
	Evaluate(ctx context.Context, filter CompiledFilter, items []*jsonobj.Object) ([]*jsonobj.Object, error)
}

// BatchEvaluator evaluates multiple filters concurrently
type BatchEvaluator interface {
	// EvaluateBatch evaluates multiple filters against elements concurrently
	EvaluateBatch(ctx context.Context, filters map[string]CompiledFilter, items []*jsonobj.Object) (map[string][]*jsonobj.Object, error)
}

// CachingCompiler provides caching for compiled filters
type CachingCompiler interface {
	Compiler

	// Clear removes all cached filters
	Clear()

	// Size returns the number of cached filters
	Size() int
}

// BatchResult represents the result of evaluating a filter
type BatchResult struct {
	FilterName string
	Matches    []*jsonobj.Object
	Error      error
}

// WorkerPool defines the interface for concurrent work execution
type WorkerPool interface {
	// Submit submits work to the pool, waiting for room until ctx is done
	Submit(ctx context.Context, work func()) error

	// Stop gracefully stops the worker pool
	Stop(ctx context.Context) error
}
