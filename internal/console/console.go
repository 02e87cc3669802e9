package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/zkplatoon/platoon/internal/dispatcher"
)

// Run reads one command per line from r and writes each result to w.
// It returns on "quit", at end of input or when ctx is done.
func Run(ctx context.Context, r io.Reader, w io.Writer, d *dispatcher.Dispatcher) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprint(w, "> ")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if !handleLine(ctx, w, d, line) {
				return nil
			}
			fmt.Fprint(w, "> ")
		}
	}
}

// handleLine reports false when the operator asked to quit.
func handleLine(ctx context.Context, w io.Writer, d *dispatcher.Dispatcher, line string) bool {
	e, ok := dispatcher.Parse(line, time.Now())
	if !ok {
		return true
	}

	switch e.Command {
	case "quit", "exit":
		return false
	case "help":
		for _, c := range d.Commands() {
			fmt.Fprintf(w, "  %-10s %s\n", c.Name, c.Help)
		}
		return true
	}

	result, err := d.Dispatch(ctx, e)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n", err)
		return true
	}
	if result != nil {
		fmt.Fprintln(w, result)
	}
	return true
}
