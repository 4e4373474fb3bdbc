package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/fetchr/apierror"
	"github.com/s0up4200/fetchr/jsonobj"
)

// fakeTransport replays scripted outcomes and records every call
type fakeTransport struct {
	mu      sync.Mutex
	steps   []fakeStep
	calls   []fakeCall
	onEmpty fakeStep
}

type fakeStep struct {
	resp *Response
	err  error
}

type fakeCall struct {
	url   string
	query url.Values
}

func (f *fakeTransport) Get(_ context.Context, rawURL string, query url.Values) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, fakeCall{url: rawURL, query: query})
	step := f.onEmpty
	if len(f.steps) > 0 {
		step, f.steps = f.steps[0], f.steps[1:]
	}
	return step.resp, step.err
}

func (f *fakeTransport) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

func notConnected() fakeStep {
	return fakeStep{err: &apierror.TransportError{
		Code:        apierror.CodeNotConnectedToInternet,
		Description: "The Internet connection appears to be offline.",
	}}
}

func okBody(body string) fakeStep {
	return fakeStep{resp: &Response{StatusCode: http.StatusOK, Body: []byte(body)}}
}

// recordingHook answers prompts from a script and records everything
type recordingHook struct {
	mu        sync.Mutex
	answers   []bool
	events    []string
	prompted  []*apierror.Error
	presented []string
}

func (h *recordingHook) PromptConnectivityRetry(_ context.Context, err *apierror.Error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "prompt")
	h.prompted = append(h.prompted, err)
	if len(h.answers) == 0 {
		return false
	}
	answer := h.answers[0]
	h.answers = h.answers[1:]
	return answer
}

func (h *recordingHook) PresentError(_ context.Context, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, "present")
	h.presented = append(h.presented, message)
}

func newTestClient(t *testing.T, cfg Config, opts ...Option) *Client {
	t.Helper()
	client, err := NewClient(cfg, zerolog.Nop(), opts...)
	require.NoError(t, err)
	return client
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("request did not finish")
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
		errMsg  string
	}{
		{name: "valid http", baseURL: "http://localhost:8080/api"},
		{name: "valid https", baseURL: "https://api.example.com"},
		{name: "empty base URL", baseURL: ""},
		{name: "bad scheme", baseURL: "ftp://example.com", wantErr: true, errMsg: "scheme must be http or https"},
		{name: "unparsable", baseURL: "http://[::1", wantErr: true, errMsg: "invalid base URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(Config{BaseURL: tt.baseURL}, zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.baseURL, client.BaseURL())
		})
	}
}

func TestClientSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/items", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		w.Write([]byte(`{"items":[{"id":7}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, Config{BaseURL: server.URL + "/api"})

	var got []int
	var errs []*apierror.Error
	done := client.Go(context.Background(), Request{
		Endpoint: "/items",
		Params:   Params{"page": 1},
	}, Handlers{
		OnSuccess: func(obj *jsonobj.Object) {
			for _, item := range obj.Array("items") {
				got = append(got, item.Int("id"))
			}
		},
		OnError: func(err *apierror.Error) {
			errs = append(errs, err)
		},
	})
	waitDone(t, done)

	assert.Equal(t, []int{7}, got)
	assert.Empty(t, errs)
}

func TestClientHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"server down"}`))
	}))
	defer server.Close()

	hook := &recordingHook{}
	client := newTestClient(t, Config{BaseURL: server.URL}, WithHook(hook))

	var errs []*apierror.Error
	successes := 0
	done := client.Go(context.Background(), Request{Endpoint: "/status"}, Handlers{
		OnSuccess: func(*jsonobj.Object) { successes++ },
		OnError:   func(err *apierror.Error) { errs = append(errs, err) },
	})
	waitDone(t, done)

	require.Len(t, errs, 1)
	assert.Equal(t, 0, successes)
	assert.Equal(t, "server down", errs[0].Details())
	assert.Equal(t, apierror.KindHTTP, errs[0].Kind())
	status, ok := errs[0].StatusCode()
	assert.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.False(t, errs[0].IsConnectivity())
	assert.Empty(t, hook.events, "HTTP errors never prompt")
}

func TestClientConnectivityRetry(t *testing.T) {
	transport := &fakeTransport{steps: []fakeStep{notConnected(), okBody(`{"ok":true}`)}}
	hook := &recordingHook{answers: []bool{true}}
	client := newTestClient(t, Config{BaseURL: "https://api.example.com"}, WithTransport(transport), WithHook(hook))

	var events []string
	done := client.Go(context.Background(), Request{
		Endpoint: "/items",
		Params:   Params{"q": "term"},
	}, Handlers{
		OnSuccess: func(obj *jsonobj.Object) {
			assert.True(t, obj.Bool("ok"))
			events = append(events, "success")
		},
		OnError: func(err *apierror.Error) {
			assert.True(t, err.IsConnectivity())
			events = append(events, "error")
		},
	})
	waitDone(t, done)

	assert.Equal(t, []string{"error", "success"}, events)
	assert.Equal(t, []string{"prompt"}, hook.events)

	calls := transport.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0], calls[1], "retry re-issues the identical request")
	assert.Equal(t, "https://api.example.com/items", calls[0].url)
	assert.Equal(t, url.Values{"q": {"term"}}, calls[0].query)
}

func TestClientConnectivityDeclined(t *testing.T) {
	transport := &fakeTransport{onEmpty: notConnected()}
	hook := &recordingHook{answers: []bool{false}}
	client := newTestClient(t, Config{BaseURL: "https://api.example.com"}, WithTransport(transport), WithHook(hook))

	done := client.Go(context.Background(), Request{Endpoint: "/items"}, Handlers{})
	waitDone(t, done)

	assert.Len(t, transport.Calls(), 1)
	// The error is presented before the user is asked to retry
	assert.Equal(t, []string{"present", "prompt"}, hook.events)
	require.Len(t, hook.presented, 1)
	assert.Equal(t, "The Internet connection appears to be offline. -1009", hook.presented[0])
}

func TestClientConnectivityWithoutHook(t *testing.T) {
	transport := &fakeTransport{onEmpty: notConnected()}
	client := newTestClient(t, Config{BaseURL: "https://api.example.com"}, WithTransport(transport))

	var errs []*apierror.Error
	done := client.Go(context.Background(), Request{Endpoint: "/items"}, Handlers{
		OnError: func(err *apierror.Error) { errs = append(errs, err) },
	})
	waitDone(t, done)

	assert.Len(t, transport.Calls(), 1)
	require.Len(t, errs, 1)
	assert.True(t, errs[0].IsConnectivity())
}

func TestClientRequestHookOverride(t *testing.T) {
	transport := &fakeTransport{steps: []fakeStep{notConnected(), okBody(`{}`)}}
	clientHook := &recordingHook{}
	requestHook := &recordingHook{answers: []bool{true}}
	client := newTestClient(t, Config{}, WithTransport(transport), WithHook(clientHook))

	obj, err := client.Get(context.Background(), Request{URL: "https://other.example.com/", Endpoint: "/ping", Hook: requestHook})
	require.NoError(t, err)
	assert.True(t, obj.IsObject())

	assert.Empty(t, clientHook.events)
	assert.Equal(t, []string{"prompt"}, requestHook.events)
	assert.Equal(t, "https://other.example.com/ping", transport.Calls()[0].url)
}

func TestClientMaxConnectivityRetries(t *testing.T) {
	transport := &fakeTransport{onEmpty: notConnected()}
	hook := &recordingHook{answers: []bool{true, true, true, true, true}}
	client := newTestClient(t, Config{MaxConnectivityRetries: 2}, WithTransport(transport), WithHook(hook))

	var attempts []int
	for res := range client.Fetch(context.Background(), Request{URL: "https://api.example.com"}) {
		require.NotNil(t, res.Err)
		attempts = append(attempts, res.Attempt)
	}

	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Len(t, hook.prompted, 2)
}

func TestClientFetchStopsOnCancel(t *testing.T) {
	transport := &fakeTransport{onEmpty: notConnected()}
	ctx, cancel := context.WithCancel(context.Background())

	hook := HookFuncs{Prompt: func(context.Context, *apierror.Error) bool {
		cancel()
		return true
	}}
	client := newTestClient(t, Config{}, WithTransport(transport), WithHook(hook))

	results := client.Fetch(ctx, Request{URL: "https://api.example.com"})
	first := <-results
	require.NotNil(t, first.Err)

	for range results {
	}
	assert.LessOrEqual(t, len(transport.Calls()), 2)
}

func TestClientFetchAbandonedReaderReleasedByCancel(t *testing.T) {
	transport := &fakeTransport{onEmpty: notConnected()}
	hook := HookFuncs{Prompt: func(context.Context, *apierror.Error) bool { return true }}
	client := newTestClient(t, Config{}, WithTransport(transport), WithHook(hook))

	ctx, cancel := context.WithCancel(context.Background())
	results := client.Fetch(ctx, Request{URL: "https://api.example.com"})
	<-results

	// Nobody reads the next attempt until ctx is cancelled
	time.Sleep(20 * time.Millisecond)
	cancel()

	closed := make(chan struct{})
	go func() {
		for range results {
		}
		close(closed)
	}()
	waitDone(t, closed)
}

func TestClientRetryIgnoresCallerParamMutation(t *testing.T) {
	transport := &fakeTransport{steps: []fakeStep{notConnected(), okBody(`{}`)}}
	ids := []string{"1", "2"}
	filter := map[string]any{"status": "open"}

	hook := HookFuncs{Prompt: func(context.Context, *apierror.Error) bool {
		ids[0] = "changed"
		filter["status"] = "closed"
		return true
	}}
	client := newTestClient(t, Config{}, WithTransport(transport), WithHook(hook))

	_, err := client.Get(context.Background(), Request{
		URL:    "https://api.example.com",
		Params: Params{"ids": ids, "filter": filter},
	})
	require.NoError(t, err)

	calls := transport.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, calls[0].query, calls[1].query)
	assert.Equal(t, url.Values{"ids[]": {"1", "2"}, "filter[status]": {"open"}}, calls[1].query)
}

func TestClientDefaultReport(t *testing.T) {
	transport := &fakeTransport{onEmpty: fakeStep{resp: &Response{
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"error":"not found","detail":"ignored"}`),
	}}}
	hook := &recordingHook{}
	client := newTestClient(t, Config{}, WithTransport(transport), WithHook(hook))

	done := client.Go(context.Background(), Request{URL: "https://api.example.com/missing"}, Handlers{})
	waitDone(t, done)

	assert.Equal(t, []string{"not found 404"}, hook.presented)
}

func TestClientUnknownOutcome(t *testing.T) {
	transport := &fakeTransport{}
	client := newTestClient(t, Config{}, WithTransport(transport))

	res := client.Do(context.Background(), Request{URL: "https://api.example.com"})
	require.NotNil(t, res.Err)
	assert.Nil(t, res.Object)
	assert.Equal(t, apierror.KindUnknown, res.Err.Kind())
	assert.Equal(t, apierror.DefaultDetails, res.Err.Message())
}

func TestClientEmptyBodyIsNullObject(t *testing.T) {
	transport := &fakeTransport{onEmpty: fakeStep{resp: &Response{StatusCode: http.StatusNoContent}}}
	client := newTestClient(t, Config{}, WithTransport(transport))

	obj, err := client.Get(context.Background(), Request{URL: "https://api.example.com"})
	require.NoError(t, err)
	assert.True(t, obj.IsNull())
	assert.Equal(t, "fallback", obj.StringOr("anything", "fallback"))
}

func TestClientGetError(t *testing.T) {
	transport := &fakeTransport{onEmpty: fakeStep{resp: &Response{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"fallback":"try later","error":"bad"}`),
	}}}
	client := newTestClient(t, Config{}, WithTransport(transport))

	obj, err := client.Get(context.Background(), Request{URL: "https://api.example.com"})
	require.Error(t, err)
	assert.Nil(t, obj)

	apiErr, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, "try later 400", apiErr.Message())
}

func TestClientFetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"status":"bad gateway"}`))
			return
		}
		w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	defer server.Close()

	client := newTestClient(t, Config{BaseURL: server.URL})

	reqs := []Request{{Endpoint: "/a"}, {Endpoint: "/fail"}, {Endpoint: "/c"}, {Endpoint: "/d"}}
	results := client.FetchAll(context.Background(), reqs, 2)
	require.Len(t, results, len(reqs))

	assert.Equal(t, "/a", results[0].Object.String("path"))
	assert.False(t, results[1].OK())
	assert.Equal(t, "bad gateway 502", results[1].Err.Message())
	assert.Equal(t, "/c", results[2].Object.String("path"))
	assert.Equal(t, "/d", results[3].Object.String("path"))

	assert.Empty(t, client.FetchAll(context.Background(), nil, 2))
}

func TestTargetJoining(t *testing.T) {
	tests := []struct {
		name string
		base string
		req  Request
		want string
	}{
		{name: "plain", base: "https://x.io/api", req: Request{Endpoint: "/items"}, want: "https://x.io/api/items"},
		{name: "double slash trimmed", base: "https://x.io/api/", req: Request{Endpoint: "/items"}, want: "https://x.io/api/items"},
		{name: "empty endpoint", base: "https://x.io/api", req: Request{}, want: "https://x.io/api"},
		{name: "url override", base: "https://x.io", req: Request{URL: "https://y.io", Endpoint: "/z"}, want: "https://y.io/z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, Config{BaseURL: tt.base}, WithTransport(&fakeTransport{}))
			assert.Equal(t, tt.want, client.target(tt.req))
		})
	}
}
