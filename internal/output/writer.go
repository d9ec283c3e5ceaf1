package output

import (
	"os"
	"path/filepath"
	"strings"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Writer is the single write path of a build. It is safe for concurrent
// use as long as each artifact has one writer.
type Writer struct {
	root     string
	target   Target
	post     *PostProcessor
	recorder metrics.Recorder
}

// NewWriter returns a Writer storing into target. root is the on-disk
// output directory; it also receives co-located assets in memory mode.
func NewWriter(root string, target Target, post *PostProcessor, recorder metrics.Recorder) *Writer {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Writer{root: root, target: target, post: post, recorder: recorder}
}

// Root returns the output directory.
func (w *Writer) Root() string { return w.root }

// Target returns the configured target.
func (w *Writer) Target() Target { return w.target }

// Write post-processes content and stores it at components/filename. It
// returns the on-disk directory for components. With createDirs the
// directory is created even in memory mode so assets can be copied into it.
func (w *Writer) Write(components []string, filename, content string, createDirs bool) (string, error) {
	dir := filepath.Join(append([]string{w.root}, components...)...)
	if _, disk := w.target.(DiskTarget); createDirs && !disk {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", foundation.WrapError(err, foundation.CategoryFileSystem, "create output directory").
				WithContext("path", dir).Build()
		}
	}

	final, err := w.post.Process(filename, content)
	if err != nil {
		return "", foundation.WrapError(err, foundation.CategoryOutput, "post-process output").
			WithContext("path", filepath.Join(dir, filename)).Fatal().Build()
	}
	if err := w.target.Put(components, filename, []byte(final)); err != nil {
		return "", err
	}
	w.recorder.IncFileWritten(w.target.Name())
	return dir, nil
}

// Delete drops a previously written artifact from the target.
func (w *Writer) Delete(components []string, filename string) error {
	return w.target.Delete(components, filename)
}

// Clean removes the output directory. It refuses a directory that is the
// site root or one of its ancestors, since removing it would take the
// sources with it.
func Clean(root, siteRoot string) error {
	out, err := filepath.Abs(root)
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "resolve output directory").
			WithContext("path", root).Build()
	}
	site, err := filepath.Abs(siteRoot)
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "resolve site root").
			WithContext("path", siteRoot).Build()
	}
	if rel, err := filepath.Rel(out, site); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return foundation.ConfigError("output directory must not contain the site root").
			WithContext("output_dir", out).
			WithContext("root", site).
			UserAction().Build()
	}
	if err := os.RemoveAll(out); err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "remove output directory").
			WithContext("path", out).Build()
	}
	return nil
}
