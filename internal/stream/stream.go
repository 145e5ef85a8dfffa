// Package stream consumes the newline-delimited JSON progress events
// produced by a generation run.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yildizm/dlgen/internal/logger"
)

// MaxLineSize bounds a single event line
const MaxLineSize = 1024 * 1024

// ErrTimeout is returned when the run exceeds its wall-clock budget.
// It is distinct from a failure reported by the server.
var ErrTimeout = errors.New("processing timed out")

// ReportedError is a failure announced by the server inside the stream
type ReportedError struct {
	Message string
}

func (e *ReportedError) Error() string {
	return e.Message
}

// Event is one decoded stream line. Absent fields leave the running state untouched.
type Event struct {
	Progress      *float64 `json:"progress,omitempty"`
	Message       *string  `json:"message,omitempty"`
	Error         string   `json:"error,omitempty"`
	DownloadReady bool     `json:"download_ready,omitempty"`
	PrintReady    bool     `json:"print_ready,omitempty"`
	Areas         []string `json:"areas,omitempty"`
}

// State is the cumulative view of a run after each applied event
type State struct {
	Progress      float64  `json:"progress"`
	Message       string   `json:"message"`
	DownloadReady bool     `json:"download_ready"`
	PrintReady    bool     `json:"print_ready"`
	Areas         []string `json:"areas,omitempty"`
	Events        int      `json:"events"`
	Skipped       int      `json:"skipped"`
}

// Succeeded reports whether a follow-up action became available
func (s State) Succeeded() bool {
	return s.DownloadReady || s.PrintReady
}

// Apply folds a non-error event into the state. Ready flags only ever turn on.
func (s *State) Apply(e Event) {
	s.Events++
	if e.Progress != nil {
		s.Progress = clamp(*e.Progress)
	}
	if e.Message != nil {
		s.Message = *e.Message
	}
	if e.DownloadReady {
		s.DownloadReady = true
	}
	if e.PrintReady {
		s.PrintReady = true
		if len(e.Areas) > 0 {
			s.Areas = append([]string(nil), e.Areas...)
		}
	}
}

func clamp(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}

// Consumer reads a progress stream
type Consumer struct {
	log      *logger.Logger
	onUpdate func(State)
}

// NewConsumer creates a consumer. onUpdate, if set, sees the state after every applied event.
func NewConsumer(log *logger.Logger, onUpdate func(State)) *Consumer {
	if log == nil {
		log = logger.Quiet("stream")
	}
	return &Consumer{log: log, onUpdate: onUpdate}
}

type lineResult struct {
	line      string
	oversized bool
	err       error
	eof       bool
}

// readLine returns the next line without its terminator. A line longer than
// MaxLineSize is drained and flagged instead of returned.
func readLine(r *bufio.Reader) (string, bool, error) {
	var (
		buf       []byte
		oversized bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(chunk) > MaxLineSize+1 {
				oversized = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return strings.TrimRight(string(buf), "\r\n"), oversized, err
	}
}

// Consume processes r until EOF, a reported error, or ctx ends. The initial
// state is passed through so a caller can seed the message shown before the first event.
func (c *Consumer) Consume(ctx context.Context, r io.Reader, initial State) (State, error) {
	state := initial
	lines := make(chan lineResult)
	done := make(chan struct{})
	defer close(done)

	go func() {
		reader := bufio.NewReaderSize(r, 64*1024)
		for {
			line, oversized, err := readLine(reader)
			if line != "" || oversized {
				select {
				case lines <- lineResult{line: line, oversized: oversized}:
				case <-done:
					return
				}
			}
			if err == nil {
				continue
			}
			final := lineResult{eof: true}
			if !errors.Is(err, io.EOF) {
				final = lineResult{err: err}
			}
			select {
			case lines <- final:
			case <-done:
			}
			return
		}
	}()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return state, ErrTimeout
			}
			return state, ctx.Err()

		case res := <-lines:
			if res.eof {
				return state, nil
			}
			if res.err != nil {
				// A body cut short by the deadline surfaces here as a read error
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return state, ErrTimeout
				}
				return state, fmt.Errorf("failed to read progress stream: %w", res.err)
			}

			if res.oversized {
				state.Skipped++
				c.log.Warn("Skipping progress line longer than %d bytes", MaxLineSize)
				continue
			}
			event, ok := c.decode(res.line, &state)
			if !ok {
				continue
			}
			if event.Error != "" {
				c.log.Warn("Server reported failure: %s", event.Error)
				return state, &ReportedError{Message: event.Error}
			}
			state.Apply(event)
			if c.onUpdate != nil {
				c.onUpdate(state)
			}
		}
	}
}

// decode parses one line; blank and malformed lines are skipped
func (c *Consumer) decode(line string, state *State) (Event, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Event{}, false
	}
	var event Event
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		state.Skipped++
		c.log.WarnWithFields("Skipping malformed progress line", []logger.Field{
			logger.Error(err),
			logger.F("line", truncate(line, 200)),
		})
		return Event{}, false
	}
	return event, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
