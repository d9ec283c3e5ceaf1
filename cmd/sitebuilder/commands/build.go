package commands

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	BaseURL string `short:"u" name:"base-url" help:"Override base_url from the configuration"`
	Output  string `short:"o" name:"output-dir" help:"Output directory, relative to the root (default public)"`
	Drafts  bool   `name:"drafts" help:"Include draft documents"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := root.loadConfig(config.ModeBuild)
	if err != nil {
		return err
	}
	b.apply(cfg)
	report, err := RunBuild(ctx, cfg, b.Drafts)
	if err != nil {
		return err
	}
	fmt.Printf("Done in %s: %s\n", report.Duration().Round(time.Millisecond), report.Summary())
	return nil
}

func (b *BuildCmd) apply(cfg *config.Config) {
	if b.BaseURL != "" {
		cfg.BaseURL = b.BaseURL
	}
	if b.Output != "" {
		out := b.Output
		if !filepath.IsAbs(out) {
			out = filepath.Join(cfg.Paths.Root, out)
		}
		cfg.Paths.Output = out
	}
}

// RunBuild loads and renders cfg's site to disk.
func RunBuild(ctx context.Context, cfg *config.Config, drafts bool) (*site.BuildReport, error) {
	s, err := site.New(cfg, site.WithIncludeDrafts(drafts))
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s.Build(ctx)
}
