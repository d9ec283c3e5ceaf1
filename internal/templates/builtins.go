package templates

import (
	htmltemplate "html/template"
	"strings"
	"time"
)

func builtinFuncs() map[string]any {
	return map[string]any{
		// Rendered markdown is trusted site content.
		"safe": func(s string) htmltemplate.HTML { return htmltemplate.HTML(s) }, //nolint:gosec
		"now":  func() time.Time { return time.Now().UTC() },
		"date": func(layout string, t any) string {
			switch v := t.(type) {
			case time.Time:
				if v.IsZero() {
					return ""
				}
				return v.Format(layout)
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Format(layout)
			default:
				return ""
			}
		},
		"join":  strings.Join,
		"lower": strings.ToLower,
	}
}

// RenderRedirect returns the HTML document used for aliases, redirect_to and
// the numbered path of a first pager.
func RenderRedirect(permalink string) string {
	escaped := htmltemplate.HTMLEscapeString(permalink)
	return `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Redirect</title>
<link rel="canonical" href="` + escaped + `">
<meta http-equiv="refresh" content="0; url=` + escaped + `">
</head>
<body>
<p><a href="` + escaped + `">Click here</a> to be redirected.</p>
</body>
</html>
`
}
