package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/s0up4200/fetchr/api"
	"github.com/s0up4200/fetchr/apierror"
	"github.com/s0up4200/fetchr/filter"
	"github.com/s0up4200/fetchr/jsonobj"
)

var (
	params     []string
	eachField  string
	whereExpr  string
	filterName string
	jqExpr     string
	rawOutput  bool
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <endpoint>...",
	Short: "GET one or more endpoints and print the JSON responses",
	Long: `Fetch each endpoint relative to the API base URL and print the response.

Several endpoints are fetched concurrently (api.concurrency at a time) and
printed in the order given.

Examples:
  fetchr get /items --param page=2
  fetchr get /items --each items --where 'num("price") > 10 and flag("active")'
  fetchr get /items --each items --filter expensive
  fetchr get /users /groups --jq '.[].name'`,
	Args:    cobra.MinimumNArgs(1),
	PreRunE: initializeApp,
	RunE:    runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringArrayVarP(&params, "param", "p", nil, "query parameter as key=value (repeat a key for a list)")
	getCmd.Flags().StringVarP(&eachField, "each", "e", "", "iterate over the array in this response field")
	getCmd.Flags().StringVarP(&whereExpr, "where", "w", "", "keep only elements matching this filter expression")
	getCmd.Flags().StringVarP(&filterName, "filter", "f", "", "keep only elements matching a named filter from the config")
	getCmd.Flags().StringVar(&jqExpr, "jq", "", "transform the output with a jq expression")
	getCmd.Flags().BoolVarP(&rawOutput, "raw", "r", false, "print compact JSON")
}

// outputOptions controls how a response is rendered
type outputOptions struct {
	each   string
	filter filter.CompiledFilter
	jq     *gojq.Code
	raw    bool
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	queryParams, err := parseParams(params)
	if err != nil {
		return err
	}

	opts, err := buildOutputOptions()
	if err != nil {
		return err
	}

	reqs := make([]api.Request, len(args))
	for i, endpoint := range args {
		reqs[i] = api.Request{Endpoint: endpoint, Params: queryParams}
	}

	out := cmd.OutOrStdout()

	if len(reqs) == 1 {
		return getOne(ctx, out, reqs[0], opts)
	}

	logger.Debug().Int("endpoints", len(reqs)).Int("concurrency", cfg.API.Concurrency).Msg("Fetching endpoints")

	var failed int
	results := client.FetchAll(ctx, reqs, cfg.API.Concurrency)
	for i, res := range results {
		fmt.Fprintf(out, "# %s\n", args[i])
		if res.Err != nil {
			failed++
			fmt.Fprintf(out, "error: %s\n", res.Err.Message())
			continue
		}
		if res.Object == nil {
			failed++
			fmt.Fprintln(out, "error: request cancelled")
			continue
		}
		if err := render(ctx, out, res.Object, opts); err != nil {
			failed++
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(reqs))
	}
	return nil
}

// getOne runs a single request through the callback facade. Failures are
// shown the way the client reports them by default: on the terminal hook
// when one is attached, in the log otherwise.
func getOne(ctx context.Context, out io.Writer, req api.Request, opts outputOptions) error {
	var (
		renderErr error
		lastErr   *apierror.Error
		succeeded bool
	)

	done := client.Go(ctx, req, api.Handlers{
		OnSuccess: func(obj *jsonobj.Object) {
			succeeded = true
			lastErr = nil
			renderErr = render(ctx, out, obj, opts)
		},
		OnError: func(err *apierror.Error) {
			lastErr = err
			client.ReportError(ctx, req, err)
		},
	})
	<-done

	switch {
	case renderErr != nil:
		return renderErr
	case succeeded:
		return nil
	case lastErr != nil:
		return lastErr
	default:
		return ctx.Err()
	}
}

func buildOutputOptions() (outputOptions, error) {
	opts := outputOptions{each: eachField, raw: rawOutput}

	if whereExpr != "" && filterName != "" {
		return opts, fmt.Errorf("--where and --filter cannot be combined")
	}

	if whereExpr != "" {
		f, err := filters.Compile(whereExpr)
		if err != nil {
			return opts, fmt.Errorf("invalid --where expression: %w", err)
		}
		opts.filter = f
	}

	if filterName != "" {
		f, ok := filters.GetFilter(strings.ToLower(filterName))
		if !ok {
			return opts, fmt.Errorf("filter '%s' not found (available: %s)", filterName, strings.Join(filters.ListFilters(), ", "))
		}
		opts.filter = f
	}

	if jqExpr != "" {
		code, err := compileJQ(jqExpr)
		if err != nil {
			return opts, err
		}
		opts.jq = code
	}

	return opts, nil
}

// parseParams turns key=value pairs into request parameters. A repeated key
// becomes a list.
func parseParams(pairs []string) (api.Params, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	out := api.Params{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", pair)
		}

		switch existing := out[key].(type) {
		case nil:
			out[key] = value
		case string:
			out[key] = []string{existing, value}
		case []string:
			out[key] = append(existing, value)
		}
	}
	return out, nil
}

func compileJQ(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}

	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("failed to compile jq expression: %w", err)
	}
	return code, nil
}

// render selects, filters and transforms obj, then prints it
func render(ctx context.Context, w io.Writer, obj *jsonobj.Object, opts outputOptions) error {
	result := obj

	if opts.each != "" || opts.filter != nil {
		items, err := selectItems(obj, opts.each)
		if err != nil {
			return err
		}

		if opts.filter != nil {
			items, err = filters.Apply(ctx, opts.filter, items)
			if err != nil {
				return err
			}
		}

		result = joinItems(items)
	}

	if opts.jq != nil {
		return printJQ(ctx, w, result, opts)
	}

	return printObject(w, result, opts.raw)
}

// selectItems returns the elements to iterate: the array in field each, the
// response itself when it is an array, or the response as the single element.
func selectItems(obj *jsonobj.Object, each string) ([]*jsonobj.Object, error) {
	if each != "" {
		field := obj.Get(each)
		if !field.IsArray() {
			return nil, fmt.Errorf("field '%s' is not an array", each)
		}
		return obj.Array(each), nil
	}
	if obj.IsArray() {
		return obj.Elements(), nil
	}
	return []*jsonobj.Object{obj}, nil
}

func joinItems(items []*jsonobj.Object) *jsonobj.Object {
	raws := make([]string, len(items))
	for i, item := range items {
		raws[i] = item.Raw()
	}
	return jsonobj.ParseString("[" + strings.Join(raws, ",") + "]")
}

func printJQ(ctx context.Context, w io.Writer, obj *jsonobj.Object, opts outputOptions) error {
	iter := opts.jq.RunWithContext(ctx, obj.Value())
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}

		// gojq values are plain Go JSON values
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("jq: %w", err)
		}
		if err := printObject(w, jsonobj.Parse(data), opts.raw); err != nil {
			return err
		}
	}
}

func printObject(w io.Writer, obj *jsonobj.Object, raw bool) error {
	text := obj.Pretty()
	if raw {
		text = obj.Raw()
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
