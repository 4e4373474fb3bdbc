package filter

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/s0up4200/fetchr/jsonobj"
)

// ItemVar names the variable holding the whole element
const ItemVar = "Item"

// exprFilter implements CompiledFilter using the expr language
type exprFilter struct {
	expression  string
	program     *vm.Program
	customFuncs map[string]any
}

// ExprCompilerOption configures an expr compiler
type ExprCompilerOption func(*exprCompiler)

// WithCache enables filter caching with the specified size
func WithCache(size int) ExprCompilerOption {
	return func(c *exprCompiler) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[string, CompiledFilter](size)
		if err == nil {
			c.cache = cache
		}
	}
}

// WithCustomFunctions adds custom helper functions
func WithCustomFunctions(funcs map[string]any) ExprCompilerOption {
	return func(c *exprCompiler) {
		maps.Copy(c.customFuncs, funcs)
	}
}

// NewExprCompiler creates a new expr-based filter compiler
func NewExprCompiler(opts ...ExprCompilerOption) Compiler {
	c := &exprCompiler{
		customFuncs: make(map[string]any),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Element helpers are bound per evaluation; a null element gives the
	// checker their signatures
	c.compileEnv = createRuntimeEnvironment(jsonobj.Null(), c.customFuncs)
	delete(c.compileEnv, ItemVar)

	return c
}

// CompileFilter compiles expression without caching
func CompileFilter(expression string) (CompiledFilter, error) {
	return NewExprCompiler().Compile(expression)
}

// exprCompiler implements Compiler for expr-based filters
type exprCompiler struct {
	customFuncs map[string]any
	compileEnv  map[string]any
	cache       *lru.Cache[string, CompiledFilter]
}

// Compile compiles an expression into an executable filter
func (c *exprCompiler) Compile(expression string) (CompiledFilter, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "empty expression",
		}
	}

	if c.cache != nil {
		if cached, ok := c.cache.Get(expression); ok {
			return cached, nil
		}
	}

	program, err := expr.Compile(expression,
		expr.Env(c.compileEnv),
		expr.AllowUndefinedVariables(), // element fields are only known at runtime
		expr.AsBool(),
	)
	if err != nil {
		return nil, &CompilationError{
			Expression: expression,
			Reason:     "failed to compile expression",
			Err:        err,
		}
	}

	filter := &exprFilter{
		expression:  expression,
		program:     program,
		customFuncs: c.customFuncs,
	}

	if c.cache != nil {
		c.cache.Add(expression, filter)
	}

	return filter, nil
}

// Clear removes all cached filters
func (c *exprCompiler) Clear() {
	if c.cache != nil {
		c.cache.Purge()
	}
}

// Size returns the number of cached filters
func (c *exprCompiler) Size() int {
	if c.cache != nil {
		return c.cache.Len()
	}
	return 0
}

// Evaluate evaluates the filter against an element
func (f *exprFilter) Evaluate(item *jsonobj.Object) bool {
	ok, err := f.Match(item)
	return err == nil && ok
}

// Match evaluates the filter and reports evaluation failures
func (f *exprFilter) Match(item *jsonobj.Object) (bool, error) {
	env := createRuntimeEnvironment(item, f.customFuncs)

	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, &EvaluationError{
			Expression: f.expression,
			Element:    describeElement(item),
			Reason:     "expression failed",
			Err:        err,
		}
	}

	// AsBool() guarantees the type
	return result.(bool), nil
}

// Expression returns the original expression
func (f *exprFilter) Expression() string {
	return f.expression
}

// IsThreadSafe indicates that expr filters are thread-safe
func (f *exprFilter) IsThreadSafe() bool {
	return true
}

// addHelperFunctions adds the element-independent helpers
func addHelperFunctions(env map[string]any) {
	// Date helpers
	env["parseDate"] = parseDate
	env["daysSince"] = func(value string) int {
		t := parseDate(value)
		if t.IsZero() {
			return 0
		}
		return int(time.Since(t).Hours() / 24)
	}
	env["daysAgo"] = func(days int) time.Time {
		return time.Now().AddDate(0, 0, -days)
	}
	// Case-insensitive string helpers
	env["containsFold"] = func(str, substr string) bool {
		return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
	}
	env["hasPrefixFold"] = func(str, prefix string) bool {
		return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
	}
	env["hasSuffixFold"] = func(str, suffix string) bool {
		return strings.HasSuffix(strings.ToLower(str), strings.ToLower(suffix))
	}
}

// createRuntimeEnvironment exposes the element as Item, its top-level fields
// as variables and the helper functions bound to it
func createRuntimeEnvironment(item *jsonobj.Object, custom map[string]any) map[string]any {
	keys := item.Keys()
	env := make(map[string]any, len(keys)+16+len(custom))

	for _, key := range keys {
		env[key] = item.Get(key).Value()
	}
	env[ItemVar] = item.Value()

	// Helpers win over same-named fields; use field("name") for those
	addHelperFunctions(env)
	env["field"] = createFieldFunc(item)
	env["num"] = createNumFunc(item)
	env["str"] = createStrFunc(item)
	env["flag"] = createFlagFunc(item)
	env["hasField"] = createHasFieldFunc(item)
	env["isNull"] = createIsNullFunc(item)
	maps.Copy(env, custom)

	return env
}

func createFieldFunc(item *jsonobj.Object) func(string) any {
	return func(name string) any {
		return item.Get(name).Value()
	}
}

func createNumFunc(item *jsonobj.Object) func(string) float64 {
	return func(name string) float64 {
		if v, ok := item.Get(name).Value().(float64); ok {
			return v
		}
		return 0
	}
}

func createStrFunc(item *jsonobj.Object) func(string) string {
	return func(name string) string {
		return item.String(name)
	}
}

func createFlagFunc(item *jsonobj.Object) func(string) bool {
	return func(name string) bool {
		return item.Bool(name)
	}
}

func createHasFieldFunc(item *jsonobj.Object) func(string) bool {
	return func(name string) bool {
		return item.Get(name).Exists()
	}
}

func createIsNullFunc(item *jsonobj.Object) func(string) bool {
	return func(name string) bool {
		return item.Get(name).IsNull()
	}
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func describeElement(item *jsonobj.Object) string {
	raw := item.Raw()
	if len(raw) > 60 {
		raw = raw[:57] + "..."
	}
	return fmt.Sprintf("%q", raw)
}
