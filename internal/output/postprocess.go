package output

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/parse/v2"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// LiveReloadScript is the tag injected into HTML while a preview session is active.
const LiveReloadScript = `<script src="/livereload.js"></script>`

// PostProcessor transforms HTML artifacts before they are stored.
type PostProcessor struct {
	liveReload bool
	minifier   *minify.M
}

// NewPostProcessor configures live reload injection and minification.
func NewPostProcessor(liveReload, minifyHTML bool) *PostProcessor {
	p := &PostProcessor{liveReload: liveReload}
	if minifyHTML {
		m := minify.New()
		m.Add("text/html", &html.Minifier{KeepDocumentTags: true, KeepEndTags: true, KeepQuotes: true})
		m.AddFunc("text/css", css.Minify)
		m.AddFunc("application/javascript", js.Minify)
		p.minifier = m
	}
	return p
}

// Process applies the configured transforms to filename's content. Only
// .html artifacts are touched.
func (p *PostProcessor) Process(filename, content string) (string, error) {
	if p == nil || !strings.HasSuffix(filename, ".html") {
		return content, nil
	}
	if p.liveReload {
		content = InjectLiveReload(content)
	}
	if p.minifier == nil {
		return content, nil
	}
	out, err := p.minifier.String("text/html", content)
	if err != nil {
		b := foundation.WrapError(err, foundation.CategoryOutput, "minify html").Fatal()
		var perr *parse.Error
		if errors.As(err, &perr) {
			b = b.WithContext("line", perr.Line).
				WithContext("column", perr.Column).
				WithContext("position", fmt.Sprintf("%d:%d", perr.Line, perr.Column)).
				WithContext("context", strings.TrimSpace(perr.Context))
		}
		return "", b.Build()
	}
	return out, nil
}

// InjectLiveReload inserts the live reload script before the last closing
// body tag, or appends it when there is none.
func InjectLiveReload(html string) string {
	if i := strings.LastIndex(html, "</body>"); i >= 0 {
		return html[:i] + LiveReloadScript + html[i:]
	}
	return html + LiveReloadScript
}
