// Package prompt implements the terminal presentation hook used by the CLI.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/s0up4200/fetchr/api"
	"github.com/s0up4200/fetchr/apierror"
)

const (
	retryTitle   = "Connection failed"
	retryMessage = "Please check your internet connection and try again"
)

// Ensure Terminal implements api.Hook at compile time.
var _ api.Hook = (*Terminal)(nil)

// Terminal asks retry questions on out and reads answers from in.
// Concurrent requests share one terminal, so prompts are serialized.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer

	// lines is fed by a single reader goroutine started on the first prompt
	// and closed when the input ends
	lines       chan string
	readerStart sync.Once
}

// NewTerminal creates a Terminal hook
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan string),
	}
}

// PromptConnectivityRetry implements api.Hook. Anything other than "y" or
// "yes" declines, as does a closed input or a cancelled context.
func (t *Terminal) PromptConnectivityRetry(ctx context.Context, err *apierror.Error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n%s\n%s\n", retryTitle, retryMessage)
	if err != nil {
		fmt.Fprintf(t.out, "(%s)\n", err.Message())
	}
	fmt.Fprint(t.out, "Retry? [y/N]: ")

	answer, ok := t.readLine(ctx)
	if !ok {
		fmt.Fprintln(t.out)
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

// PresentError implements api.Hook
func (t *Terminal) PresentError(_ context.Context, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\nError\n%s\n", message)
}

// readLine waits for the next input line, giving up when ctx is done. A line
// typed after a prompt gave up answers the next prompt.
func (t *Terminal) readLine(ctx context.Context) (string, bool) {
	t.readerStart.Do(func() {
		go t.readLines()
	})

	select {
	case <-ctx.Done():
		return "", false
	case text, ok := <-t.lines:
		return text, ok
	}
}

// readLines is the only goroutine reading t.in
func (t *Terminal) readLines() {
	defer close(t.lines)

	for {
		text, err := t.in.ReadString('\n')
		if text != "" {
			t.lines <- text
		}
		if err != nil {
			return
		}
	}
}

// Interactive reports whether both in and out are terminals, the only case
// where prompting makes sense.
func Interactive(in, out any) bool {
	return isTerminal(in) && isTerminal(out)
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
