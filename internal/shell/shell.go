// Package shell implements the interactive prompt loop.
package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/teemow/meetingscheduler/internal/logging"
)

const (
	// Banner is printed once when the shell starts.
	Banner = "Welcome to the Meeting Scheduler Assistant!"

	// Prompt is printed before every request.
	Prompt = "Schedule a meeting (eg. Find a meeting time between me, alice@example.com & bob@example.com on tuesday afternoon for 15 mins): "

	// Separator follows every answer.
	Separator = "------------------------------------------------------------"
)

// Asker answers one scheduling request. *scheduler.Scheduler implements it.
type Asker interface {
	Ask(ctx context.Context, text string) (string, error)
}

// Shell reads requests line by line and prints the answers. It handles one
// request at a time.
type Shell struct {
	asker  Asker
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// New creates a shell reading from in and writing to out.
func New(asker Asker, in io.Reader, out io.Writer, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		asker:  asker,
		in:     in,
		out:    out,
		logger: logging.WithService(logger, "shell"),
	}
}

// Run prints the banner and serves requests until the input ends, the user
// types exit or quit, or ctx is cancelled. Failed requests are reported and
// the loop continues.
func (s *Shell) Run(ctx context.Context) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprintln(s.out, Banner)
	for {
		fmt.Fprint(s.out, Prompt)

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.out)
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("failed to read input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		answer, err := s.asker.Ask(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				fmt.Fprintln(s.out)
				return nil
			}
			s.logger.Warn("request failed", logging.Err(err))
			fmt.Fprintf(s.out, "Could not schedule: %v\n", err)
			continue
		}

		fmt.Fprintf(s.out, "Answer: %s\n", answer)
		fmt.Fprintf(s.out, "%s\n\n", Separator)
	}
}
