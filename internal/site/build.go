package site

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/fsutil"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/markdown"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/output"
	"git.home.luguber.info/inful/sitebuilder/internal/search"
	"git.home.luguber.info/inful/sitebuilder/internal/sitemap"
)

// HighlightFilename is the stylesheet written for highlighted code blocks.
const HighlightFilename = "syntax-theme.css"

// pipeline returns the ordered render stages. The order matters: aliases
// lose to real content written later, and the static copy runs after image
// processing wrote into the static tree.
func (s *Site) pipeline() *Pipeline {
	return NewPipeline().
		AddIf(s.disk(), StageClean, stageClean).
		Add(StageStylesheets, stageStylesheets).
		Add(StageSearchIndex, stageSearchIndex).
		Add(StageAliases, stageAliases).
		Add(StageSections, stageSections).
		Add(StageOrphans, stageOrphans).
		Add(StageSitemap, stageSitemap).
		Add(StageFeeds, stageFeeds).
		Add(StageSystemPages, stageSystemPages).
		Add(StageTaxonomies, stageTaxonomies).
		Add(StageImages, stageImages).
		Add(StageStatic, stageStatic)
}

// Build renders the loaded library. It holds the read lock for the whole
// run, so a concurrent Load or fast rebuild waits for it.
func (s *Site) Build(ctx context.Context) (*BuildReport, error) {
	report := newBuildReport()
	slog.Info("Build started", logfields.BuildID(report.ID), logfields.Mode(string(s.cfg.Mode)))

	if s.store != nil {
		s.store.Reset()
	}

	s.mu.RLock()
	report.Pages, report.Sections = s.lib.Len()
	report.Taxonomies = len(s.lib.Taxonomies())
	err := runStages(ctx, s, report, s.pipeline().Stages())
	s.mu.RUnlock()

	report.finish()
	s.recorder.ObserveBuildDuration(report.Duration())
	s.recorder.IncBuildOutcome(outcomeLabel(report.Outcome))
	if err != nil {
		slog.Error("Build failed", logfields.BuildID(report.ID), logfields.Stage(string(report.FailedStage)), logfields.Error(err))
		return report, err
	}
	slog.Info("Build finished", logfields.BuildID(report.ID), slog.String("summary", report.Summary()))
	return report, nil
}

func outcomeLabel(o BuildOutcome) metrics.BuildOutcomeLabel {
	switch o {
	case OutcomeSuccess:
		return metrics.BuildOutcomeSuccess
	case OutcomeCanceled:
		return metrics.BuildOutcomeCanceled
	default:
		return metrics.BuildOutcomeFailed
	}
}

func stageClean(_ context.Context, s *Site) error {
	return output.Clean(s.writer.Root(), s.cfg.Paths.Root)
}

// stageStylesheets compiles the theme's sass tree, then the site's, and
// writes the highlight stylesheet when code highlighting is enabled.
func stageStylesheets(ctx context.Context, s *Site) error {
	if s.cfg.CompileSass {
		var dirs []string
		if theme := s.cfg.ThemeDir(); theme != "" {
			dirs = append(dirs, filepath.Join(theme, "sass"))
		}
		dirs = append(dirs, s.cfg.Paths.Sass)
		for _, dir := range dirs {
			sheets, err := s.css.Compile(ctx, dir)
			if err != nil {
				return err
			}
			for _, sheet := range sheets {
				if _, err := s.writer.Write(sheet.Components, sheet.Filename, string(sheet.Content), true); err != nil {
					return err
				}
			}
		}
	}
	if s.cfg.Markdown.HighlightCode {
		css, err := markdown.HighlightCSS(s.cfg.Markdown.HighlightTheme)
		if err != nil {
			return err
		}
		if _, err := s.writer.Write(nil, HighlightFilename, css, false); err != nil {
			return err
		}
	}
	return nil
}

func stageSearchIndex(_ context.Context, s *Site) error {
	langs := s.cfg.SearchLanguages()
	for _, lang := range langs {
		index, err := s.search.BuildIndex(lang, s.lib, s.cfg)
		if err != nil {
			return err
		}
		if _, err := s.writer.Write(nil, search.IndexFilename(lang), search.Script(index), false); err != nil {
			return err
		}
	}
	if len(langs) == 0 {
		return nil
	}
	_, err := s.writer.Write(nil, search.RuntimeFilename, search.RuntimeJS, false)
	return err
}

func stageAliases(_ context.Context, s *Site) error {
	return s.renderAliases()
}

func stageSections(ctx context.Context, s *Site) error {
	return s.renderSections(ctx)
}

func stageOrphans(ctx context.Context, s *Site) error {
	return s.renderOrphans(ctx)
}

func stageSitemap(_ context.Context, s *Site) error {
	var lastmod sitemap.LastModFunc
	if s.history != nil {
		lastmod = s.history.LastMod
	}
	entries := sitemap.FindEntries(s.lib, s.lib.Taxonomies(), s.cfg, lastmod)
	files, err := sitemap.Files(s.cfg, entries)
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := s.writer.Write(nil, f.Filename, f.Content, false); err != nil {
			return err
		}
	}
	slog.Debug("Sitemap written", logfields.Count(len(entries)), slog.Int("files", len(files)))
	return nil
}

func stageFeeds(_ context.Context, s *Site) error {
	return s.renderFeeds()
}

func stageSystemPages(_ context.Context, s *Site) error {
	return s.renderSystemPages()
}

func stageTaxonomies(ctx context.Context, s *Site) error {
	return s.renderTaxonomies(ctx)
}

func stageImages(ctx context.Context, s *Site) error {
	if err := s.images.Prune(); err != nil {
		return err
	}
	return s.images.Process(ctx)
}

// stageStatic copies the theme's static tree, then the site's over it.
// Static files always land on disk, also for memory builds.
func stageStatic(_ context.Context, s *Site) error {
	var dirs []string
	if theme := s.cfg.ThemeDir(); theme != "" {
		dirs = append(dirs, filepath.Join(theme, "static"))
	}
	dirs = append(dirs, s.cfg.Paths.Static)

	start := time.Now()
	total := 0
	for i, dir := range dirs {
		// hard_link_static only applies to the site's own static tree.
		hardLink := s.cfg.HardLinkStatic && i == len(dirs)-1
		n, err := fsutil.CopyDir(dir, s.writer.Root(), hardLink)
		if err != nil {
			return err
		}
		total += n
	}
	slog.Debug("Static files copied", logfields.Count(total), logfields.Duration(time.Since(start)))
	return nil
}
