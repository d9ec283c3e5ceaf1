package linkcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/library"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/parallel"
	"git.home.luguber.info/inful/sitebuilder/internal/retry"
)

// Checker requests external URLs.
type Checker struct {
	client      *http.Client
	policy      retry.Policy
	skip        []string
	concurrency int
}

// NewChecker builds a Checker from the link_check settings.
func NewChecker(cfg config.LinkCheckConfig) *Checker {
	timeout, _, _ := cfg.Durations()
	return &Checker{
		client:      &http.Client{Timeout: timeout},
		policy:      retry.FromLinkCheck(cfg),
		skip:        cfg.SkipPrefixes,
		concurrency: cfg.Concurrency,
	}
}

// WithClient replaces the HTTP client.
func (c *Checker) WithClient(client *http.Client) *Checker {
	c.client = client
	return c
}

// statusError classifies a failing response. Rate limiting and server
// errors may clear up; anything else is permanent.
func statusError(code int) error {
	b := foundation.NewError(foundation.CategoryNetwork, fmt.Sprintf("HTTP %d", code)).
		WithContext("status", code)
	if code == http.StatusTooManyRequests || code >= 500 {
		b = b.Retryable()
	}
	return b.Build()
}

// reason renders a failure for a diagnostic without the classification prefix.
func reason(err error) string {
	classified, ok := foundation.AsClassified(err)
	if !ok {
		return err.Error()
	}
	if cause := classified.Cause(); cause != nil {
		return classified.Message() + ": " + cause.Error()
	}
	return classified.Message()
}

// CheckExternal requests every external URL linked from a rendered
// document once, in parallel, and reports those that fail after retries.
func (c *Checker) CheckExternal(ctx context.Context, lib *library.Library) ([]Diagnostic, error) {
	sources := ExternalLinks(lib)
	urls := make([]string, 0, len(sources))
	for u := range sources {
		if !c.skipped(u) {
			urls = append(urls, u)
		}
	}
	sort.Strings(urls)
	slog.Info("Checking external links", logfields.Count(len(urls)))

	var (
		mu    sync.Mutex
		diags []Diagnostic
	)
	err := parallel.ForEach(ctx, c.concurrency, urls, func(ctx context.Context, u string) error {
		err := c.policy.Do(ctx, nil, func(ctx context.Context) error { return c.check(ctx, u) })
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("External link failed", logfields.URL(u), logfields.Error(err))
		mu.Lock()
		for _, src := range sources[u] {
			diags = append(diags, Diagnostic{Source: src, Target: u, Reason: reason(err)})
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortDiagnostics(diags)
	return diags, nil
}

func (c *Checker) skipped(u string) bool {
	for _, prefix := range c.skip {
		if strings.HasPrefix(u, prefix) {
			return true
		}
	}
	return false
}

// check issues HEAD, falling back to GET for servers that reject it.
func (c *Checker) check(ctx context.Context, u string) error {
	code, err := c.do(ctx, http.MethodHead, u)
	if err != nil {
		return err
	}
	if code == http.StatusMethodNotAllowed || code == http.StatusNotImplemented {
		if code, err = c.do(ctx, http.MethodGet, u); err != nil {
			return err
		}
	}
	if code >= 400 {
		return statusError(code)
	}
	return nil
}

func (c *Checker) do(ctx context.Context, method, u string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return 0, foundation.WrapError(err, foundation.CategoryValidation, "invalid link").Build()
	}
	req.Header.Set("User-Agent", "sitebuilder-linkcheck")
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, foundation.WrapError(err, foundation.CategoryNetwork, "request failed").Retryable().Build()
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

// ExternalLinks maps every http(s) URL in rendered content to the
// identities of the documents linking it. Fragments are dropped.
func ExternalLinks(lib *library.Library) map[string][]string {
	out := make(map[string][]string)
	add := func(source, doc string) {
		for _, href := range extractLinks(doc) {
			if i := strings.IndexByte(href, '#'); i >= 0 {
				href = href[:i]
			}
			if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
				continue
			}
			if srcs := out[href]; len(srcs) == 0 || srcs[len(srcs)-1] != source {
				out[href] = append(srcs, source)
			}
		}
	}
	for _, p := range lib.Pages() {
		add(p.File.Path, p.Content)
	}
	for _, s := range lib.Sections() {
		add(s.File.Path, s.Content)
	}
	return out
}

func extractLinks(doc string) []string {
	var links []string
	z := html.NewTokenizer(strings.NewReader(doc))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "a" {
				continue
			}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == "href" {
					links = append(links, string(val))
				}
			}
		}
	}
}
