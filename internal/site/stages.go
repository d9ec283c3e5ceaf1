package site

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// StageName identifies one build stage.
type StageName string

// Canonical stages, in execution order.
const (
	StageClean       StageName = "clean"
	StageStylesheets StageName = "stylesheets"
	StageSearchIndex StageName = "search_index"
	StageAliases     StageName = "aliases"
	StageSections    StageName = "sections"
	StageOrphans     StageName = "orphan_pages"
	StageSitemap     StageName = "sitemap"
	StageFeeds       StageName = "feeds"
	StageSystemPages StageName = "system_pages"
	StageTaxonomies  StageName = "taxonomies"
	StageImages      StageName = "images"
	StageStatic      StageName = "static"
)

// Stage is a discrete unit of work in the build.
type Stage func(ctx context.Context, s *Site) error

// StageErrorKind classifies a stage failure.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"
	StageErrorCanceled StageErrorKind = "canceled"
)

// StageError wraps the cause of a failed stage.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

func newStageError(stage StageName, err error) *StageError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &StageError{Kind: StageErrorCanceled, Stage: stage, Err: err}
	}
	return &StageError{Kind: StageErrorFatal, Stage: stage, Err: err}
}

// StageDef pairs a stage name with its function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is an ordered list of stages.
type Pipeline struct {
	stages []StageDef
}

// NewPipeline returns an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{} }

// Add appends a stage.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.stages = append(p.stages, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only when cond holds.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Stages returns the configured stages.
func (p *Pipeline) Stages() []StageDef { return p.stages }

// runStages executes stages in order, recording timings, and stops at the
// first error. There is no warning class: every failure aborts the build.
func runStages(ctx context.Context, s *Site, report *BuildReport, stages []StageDef) error {
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			se := &StageError{Kind: StageErrorCanceled, Stage: st.Name, Err: err}
			report.recordFailure(se)
			s.recorder.IncStageResult(string(st.Name), metrics.ResultCanceled)
			return se
		}

		t0 := time.Now()
		err := st.Fn(ctx, s)
		dur := time.Since(t0)
		report.StageDurations[st.Name] = dur
		s.recorder.ObserveStageDuration(string(st.Name), dur)
		slog.Debug("Stage finished", logfields.BuildID(report.ID), logfields.Stage(string(st.Name)), logfields.Duration(dur))

		if err != nil {
			var se *StageError
			if !errors.As(err, &se) {
				se = newStageError(st.Name, err)
			}
			report.recordFailure(se)
			result := metrics.ResultFatal
			if se.Kind == StageErrorCanceled {
				result = metrics.ResultCanceled
			}
			s.recorder.IncStageResult(string(st.Name), result)
			return se
		}
		report.StageCounts[st.Name]++
		s.recorder.IncStageResult(string(st.Name), metrics.ResultSuccess)
	}
	return nil
}
