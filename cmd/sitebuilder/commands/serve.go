package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/sitebuilder/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Interface string `short:"i" name:"interface" default:"127.0.0.1" help:"Interface to bind"`
	Port      int    `short:"p" name:"port" default:"1111" help:"Port to listen on"`
	Drafts    bool   `name:"drafts" help:"Include draft documents"`
	NoMetrics bool   `name:"no-metrics" help:"Do not expose /metrics"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := preview.Options{
		Root:          root.Root,
		ConfigPath:    root.Config,
		Interface:     s.Interface,
		Port:          s.Port,
		IncludeDrafts: s.Drafts,
	}
	if !s.NoMetrics {
		reg := prom.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts.Registry = reg
	}

	srv, err := preview.New(opts)
	if err != nil {
		return err
	}
	fmt.Println("Web server is available at", srv.URL())
	return srv.Run(ctx)
}
