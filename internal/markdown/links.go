package markdown

import (
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// internalPrefix marks a link destination as a content-relative source path.
const internalPrefix = "@/"

// resolveInternalLink maps `@/path.md#anchor` to the target's permalink.
func resolveInternalLink(dest string, rc RenderContext) (string, content.InternalLink, error) {
	target := strings.TrimPrefix(dest, internalPrefix)
	var anchor string
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target, anchor = target[:i], target[i+1:]
	}

	permalink, ok := rc.Permalinks[target]
	if !ok {
		return "", content.InternalLink{}, foundation.LinkError("unresolved internal link").
			WithContext("path", rc.SourcePath).
			WithContext("target", dest).
			Build()
	}
	if anchor != "" {
		permalink += "#" + anchor
	}
	return permalink, content.InternalLink{Target: target, Anchor: anchor}, nil
}

func isExternal(dest string) bool {
	return strings.HasPrefix(dest, "http://") || strings.HasPrefix(dest, "https://")
}
