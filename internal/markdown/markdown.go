// Package markdown converts document bodies to HTML with goldmark. It
// resolves `@/` cross-references against the site's permalink index,
// inserts heading anchors according to the owning section's policy and
// extracts the table of contents.
package markdown

import (
	"bytes"
	"context"
	"strings"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// SummaryMarker separates a document's summary from the rest of its body.
const SummaryMarker = "<!-- more -->"

// RenderContext carries the per-document inputs of a conversion.
type RenderContext struct {
	// Permalinks maps content-relative source paths to permalinks.
	Permalinks   map[string]string
	InsertAnchor config.InsertAnchor
	// SourcePath identifies the document in error messages.
	SourcePath string
	Permalink  string
}

// Rendered is the output of one conversion.
type Rendered struct {
	HTML          string
	Summary       string
	TOC           []content.Heading
	InternalLinks []content.InternalLink
	WordCount     int
	ReadingTime   int
}

// Renderer converts markdown bodies. It is safe for concurrent use.
type Renderer struct {
	md  goldmark.Markdown
	cfg config.MarkdownConfig
}

// NewRenderer builds a goldmark pipeline with GFM, footnotes and optional
// chroma highlighting.
func NewRenderer(cfg config.MarkdownConfig) *Renderer {
	exts := []goldmark.Extender{extension.GFM, extension.Footnote}
	if cfg.SmartPunctuation {
		exts = append(exts, extension.Typographer)
	}
	if cfg.HighlightCode {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(cfg.HighlightTheme),
			highlighting.WithFormatOptions(chromahtml.WithClasses(true)),
		))
	}
	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)
	return &Renderer{md: md, cfg: cfg}
}

// Render converts body to HTML. An `@/` link whose target is not in
// rc.Permalinks fails the conversion with a link error naming both ends.
func (r *Renderer) Render(ctx context.Context, body string, rc RenderContext) (Rendered, error) {
	if err := ctx.Err(); err != nil {
		return Rendered{}, err
	}

	src := []byte(body)
	doc := r.md.Parser().Parse(text.NewReader(src), parser.WithContext(parser.NewContext()))

	var (
		out      Rendered
		headings []*gmast.Heading
		walkErr  error
	)
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			headings = append(headings, node)
		case *gmast.Link:
			dest := string(node.Destination)
			if strings.HasPrefix(dest, internalPrefix) {
				resolved, link, err := resolveInternalLink(dest, rc)
				if err != nil {
					walkErr = err
					return gmast.WalkStop, nil
				}
				node.Destination = []byte(resolved)
				out.InternalLinks = append(out.InternalLinks, link)
			} else if r.cfg.ExternalLinksTargetBlank && isExternal(dest) {
				node.SetAttributeString("target", []byte("_blank"))
				node.SetAttributeString("rel", []byte("noopener"))
			}
		}
		return gmast.WalkContinue, nil
	})
	if walkErr != nil {
		return Rendered{}, walkErr
	}

	flat := make([]content.Heading, 0, len(headings))
	for _, h := range headings {
		id := headingID(h)
		flat = append(flat, content.Heading{
			Level:     h.Level,
			ID:        id,
			Title:     plainText(h, src),
			Permalink: rc.Permalink + "#" + id,
		})
		insertAnchor(h, id, rc.InsertAnchor)
	}
	out.TOC = nestHeadings(flat)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, src, doc); err != nil {
		return Rendered{}, foundation.WrapError(err, foundation.CategoryContent, "render markdown").
			WithContext("path", rc.SourcePath).Fatal().Build()
	}
	out.HTML = buf.String()
	if i := strings.Index(out.HTML, SummaryMarker); i >= 0 {
		out.Summary = out.HTML[:i]
	}
	out.WordCount = len(strings.Fields(body))
	out.ReadingTime = (out.WordCount + 199) / 200
	return out, nil
}

func headingID(h *gmast.Heading) string {
	if v, ok := h.AttributeString("id"); ok {
		if b, ok := v.([]byte); ok {
			return string(b)
		}
	}
	return ""
}

// insertAnchor adds a self link to the heading on the configured side.
func insertAnchor(h *gmast.Heading, id string, policy config.InsertAnchor) {
	if id == "" || (policy != config.InsertAnchorLeft && policy != config.InsertAnchorRight) {
		return
	}
	link := gmast.NewLink()
	link.Destination = []byte("#" + id)
	link.SetAttributeString("class", []byte("anchor"))
	link.SetAttributeString("title", []byte(id))
	link.AppendChild(link, gmast.NewString([]byte("#")))

	if policy == config.InsertAnchorLeft && h.FirstChild() != nil {
		h.InsertBefore(h, h.FirstChild(), link)
		return
	}
	h.AppendChild(h, link)
}

func plainText(n gmast.Node, src []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		case *gmast.CodeSpan:
			for child := t.FirstChild(); child != nil; child = child.NextSibling() {
				if seg, ok := child.(*gmast.Text); ok {
					b.Write(seg.Segment.Value(src))
				}
			}
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// nestHeadings turns a flat heading list into a tree keyed on level.
func nestHeadings(flat []content.Heading) []content.Heading {
	var build func(i, level int) ([]content.Heading, int)
	build = func(i, level int) ([]content.Heading, int) {
		var out []content.Heading
		for i < len(flat) {
			h := flat[i]
			if h.Level < level {
				return out, i
			}
			i++
			h.Children, i = build(i, h.Level+1)
			out = append(out, h)
		}
		return out, i
	}
	tree, _ := build(0, 0)
	return tree
}
