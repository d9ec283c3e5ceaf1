package site

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BuildOutcome is the final state of a build.
type BuildOutcome string

const (
	OutcomeSuccess  BuildOutcome = "success"
	OutcomeFailed   BuildOutcome = "failed"
	OutcomeCanceled BuildOutcome = "canceled"
)

// BuildReport captures what one Build did.
type BuildReport struct {
	ID    string
	Start time.Time
	End   time.Time

	StageDurations map[StageName]time.Duration
	// StageCounts counts successful executions per stage.
	StageCounts map[StageName]int
	FailedStage StageName
	Errors      []error

	Pages      int
	Sections   int
	Taxonomies int
	Outcome    BuildOutcome
}

func newBuildReport() *BuildReport {
	return &BuildReport{
		ID:             uuid.NewString(),
		Start:          time.Now(),
		StageDurations: make(map[StageName]time.Duration),
		StageCounts:    make(map[StageName]int),
	}
}

func (r *BuildReport) recordFailure(se *StageError) {
	r.FailedStage = se.Stage
	r.Errors = append(r.Errors, se)
}

func (r *BuildReport) finish() {
	r.End = time.Now()
	switch {
	case len(r.Errors) == 0:
		r.Outcome = OutcomeSuccess
	case r.canceled():
		r.Outcome = OutcomeCanceled
	default:
		r.Outcome = OutcomeFailed
	}
}

func (r *BuildReport) canceled() bool {
	for _, err := range r.Errors {
		var se *StageError
		if errors.As(err, &se) && se.Kind == StageErrorCanceled {
			return true
		}
	}
	return false
}

// Duration is the wall time of the build.
func (r *BuildReport) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Summary returns a human-readable single-line summary.
func (r *BuildReport) Summary() string {
	return fmt.Sprintf("pages=%d sections=%d taxonomies=%d duration=%s stages=%d outcome=%s",
		r.Pages, r.Sections, r.Taxonomies, r.Duration().Truncate(time.Millisecond), len(r.StageDurations), r.Outcome)
}
