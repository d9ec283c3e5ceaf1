package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// CheckCmd implements the 'check' command: load, render markdown and check
// links, internal always and external when link_check.check_external is set.
type CheckCmd struct {
	Drafts bool `name:"drafts" help:"Include draft documents"`
}

func (c *CheckCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := root.loadConfig(config.ModeCheck)
	if err != nil {
		return err
	}
	s, err := site.New(cfg, site.WithIncludeDrafts(c.Drafts))
	if err != nil {
		return err
	}
	if err := s.Load(ctx); err != nil {
		return err
	}
	fmt.Println("Site checked successfully")
	return nil
}
