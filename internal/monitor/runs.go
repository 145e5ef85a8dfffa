package monitor

import (
	"fmt"
	"time"
)

// Outcome is how a single generation run ended.
type Outcome int

const (
	Succeeded Outcome = iota
	Failed
	Cancelled
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// RunStats aggregates the runs made by one process.
type RunStats struct {
	started   time.Time
	succeeded *Counter
	failed    *Counter
	cancelled *Counter
	rows      *Counter
	duration  *Timer
}

// NewRunStats starts an empty set of run totals.
func NewRunStats() *RunStats {
	return &RunStats{
		started:   time.Now(),
		succeeded: NewCounter("runs_succeeded"),
		failed:    NewCounter("runs_failed"),
		cancelled: NewCounter("runs_cancelled"),
		rows:      NewCounter("rows_uploaded"),
		duration:  NewTimer("run_duration"),
	}
}

// Record adds one finished run.
func (s *RunStats) Record(o Outcome, rows int, d time.Duration) {
	switch o {
	case Succeeded:
		s.succeeded.Inc()
	case Cancelled:
		s.cancelled.Inc()
	default:
		s.failed.Inc()
	}
	if rows > 0 {
		s.rows.Add(int64(rows))
	}
	s.duration.Record(d)
}

// Summary is a point-in-time copy of the totals.
type Summary struct {
	Runs      int64
	Succeeded int64
	Failed    int64
	Cancelled int64
	Rows      int64
	Uptime    time.Duration
	MinRun    time.Duration
	AvgRun    time.Duration
	MaxRun    time.Duration
}

// Summary snapshots the totals.
func (s *RunStats) Summary() Summary {
	return Summary{
		Runs:      s.duration.Count(),
		Succeeded: s.succeeded.Get(),
		Failed:    s.failed.Get(),
		Cancelled: s.cancelled.Get(),
		Rows:      s.rows.Get(),
		Uptime:    time.Since(s.started),
		MinRun:    s.duration.MinTime(),
		AvgRun:    s.duration.AvgTime(),
		MaxRun:    s.duration.MaxTime(),
	}
}

// SuccessRate is the share of runs that succeeded, in percent.
func (s Summary) SuccessRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Runs) * 100
}

func (s Summary) String() string {
	if s.Runs == 0 {
		return fmt.Sprintf("no runs in %s", s.Uptime.Round(time.Second))
	}
	return fmt.Sprintf("%d runs (%d succeeded, %d failed, %d cancelled), %d rows, avg %s, max %s",
		s.Runs, s.Succeeded, s.Failed, s.Cancelled, s.Rows,
		s.AvgRun.Round(time.Millisecond), s.MaxRun.Round(time.Millisecond))
}
