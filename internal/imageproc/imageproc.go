// Package imageproc resizes images requested while rendering. Requests are
// queued during the render phases and executed once at the end of a build,
// writing into the static tree so the final static copy publishes them.
package imageproc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // decoder registration
	"image/jpeg"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"
	"golang.org/x/image/draw"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/parallel"
)

// Dir is the directory below static/ that holds processed images.
const Dir = "processed_images"

// Mode selects how the target box is applied.
type Mode string

const (
	// ModeScale resizes to exactly width x height.
	ModeScale Mode = "scale"
	// ModeFitWidth keeps the aspect ratio and sets the width.
	ModeFitWidth Mode = "fit_width"
	// ModeFitHeight keeps the aspect ratio and sets the height.
	ModeFitHeight Mode = "fit_height"
	// ModeFit keeps the aspect ratio and fits inside width x height.
	ModeFit Mode = "fit"
	// ModeFill covers width x height and crops the overflow around the center.
	ModeFill Mode = "fill"
)

// Op is one resize request.
type Op struct {
	Source  string
	Width   int
	Height  int
	Mode    Mode
	Quality int
}

func (op Op) validate() error {
	switch op.Mode {
	case ModeScale, ModeFit, ModeFill:
		if op.Width <= 0 || op.Height <= 0 {
			return errors.New("width and height are required")
		}
	case ModeFitWidth:
		if op.Width <= 0 {
			return errors.New("width is required")
		}
	case ModeFitHeight:
		if op.Height <= 0 {
			return errors.New("height is required")
		}
	default:
		return fmt.Errorf("unknown resize mode %q", op.Mode)
	}
	return nil
}

func (op Op) extension() string {
	if strings.EqualFold(filepath.Ext(op.Source), ".png") {
		return ".png"
	}
	return ".jpg"
}

// filename is stable for identical requests so repeated builds reuse output.
func (op Op) filename() string {
	key := fmt.Sprintf("%s|%d|%d|%s|%d", op.Source, op.Width, op.Height, op.Mode, op.Quality)
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
	return strings.ReplaceAll(id.String(), "-", "")[:16] + op.extension()
}

// Processor accumulates resize requests. It is safe for concurrent use.
type Processor struct {
	mu      sync.Mutex
	baseURL string
	outDir  string
	workers int
	ops     map[string]Op
}

// New returns a Processor writing into staticDir/processed_images and
// publishing URLs below baseURL.
func New(staticDir, baseURL string, workers int) *Processor {
	return &Processor{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		outDir:  filepath.Join(staticDir, Dir),
		workers: workers,
		ops:     make(map[string]Op),
	}
}

// SetBaseURL changes the URL prefix of future Enqueue results.
func (p *Processor) SetBaseURL(baseURL string) {
	p.mu.Lock()
	p.baseURL = strings.TrimSuffix(baseURL, "/")
	p.mu.Unlock()
}

// Enqueue records op and returns the URL the processed image will have.
func (p *Processor) Enqueue(op Op) (string, error) {
	if op.Quality <= 0 || op.Quality > 100 {
		op.Quality = 75
	}
	if err := op.validate(); err != nil {
		return "", foundation.WrapError(err, foundation.CategoryValidation, "invalid image operation").
			WithContext("path", op.Source).Build()
	}
	if _, err := os.Stat(op.Source); err != nil {
		return "", foundation.WrapError(err, foundation.CategoryNotFound, "image not found").
			WithContext("path", op.Source).Build()
	}
	name := op.filename()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops[name] = op
	return p.baseURL + "/" + Dir + "/" + name, nil
}

// Len returns the number of queued operations.
func (p *Processor) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ops)
}

// Reset forgets every queued operation.
func (p *Processor) Reset() {
	p.mu.Lock()
	p.ops = make(map[string]Op)
	p.mu.Unlock()
}

// Prune removes processed files that no queued operation produces.
func (p *Processor) Prune() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	entries, err := os.ReadDir(p.outDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "list processed images").
			WithContext("path", p.outDir).Build()
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := p.ops[e.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(p.outDir, e.Name())); err != nil {
			return foundation.WrapError(err, foundation.CategoryFileSystem, "remove stale image").
				WithContext("path", e.Name()).Build()
		}
	}
	return nil
}

// Process performs every queued operation whose output does not exist yet.
func (p *Processor) Process(ctx context.Context) error {
	p.mu.Lock()
	names := make([]string, 0, len(p.ops))
	for name := range p.ops {
		names = append(names, name)
	}
	ops := make(map[string]Op, len(p.ops))
	for k, v := range p.ops {
		ops[k] = v
	}
	p.mu.Unlock()
	sort.Strings(names)
	if len(names) == 0 {
		return nil
	}

	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "create processed image directory").
			WithContext("path", p.outDir).Build()
	}
	return parallel.ForEach(ctx, p.workers, names, func(_ context.Context, name string) error {
		dest := filepath.Join(p.outDir, name)
		if _, err := os.Stat(dest); err == nil {
			return nil
		}
		return process(ops[name], dest)
	})
}

func process(op Op, dest string) error {
	f, err := os.Open(op.Source)
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "open image").WithContext("path", op.Source).Build()
	}
	defer func() { _ = f.Close() }()
	src, _, err := image.Decode(f)
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryContent, "decode image").WithContext("path", op.Source).Fatal().Build()
	}

	w, h := TargetSize(src.Bounds().Dx(), src.Bounds().Dy(), op)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, sourceRect(src.Bounds(), op), draw.Over, nil)

	var buf bytes.Buffer
	if op.extension() == ".png" {
		err = png.Encode(&buf, dst)
	} else {
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: op.Quality})
	}
	if err != nil {
		return foundation.WrapError(err, foundation.CategoryOutput, "encode image").WithContext("path", dest).Build()
	}
	if err := atomic.WriteFile(dest, &buf); err != nil {
		return foundation.WrapError(err, foundation.CategoryFileSystem, "write image").WithContext("path", dest).Build()
	}
	return nil
}

// sourceRect is the part of b that is scaled. Only fill crops: it keeps
// the centered region with the target aspect ratio.
func sourceRect(b image.Rectangle, op Op) image.Rectangle {
	if op.Mode != ModeFill {
		return b
	}
	w, h := b.Dx(), b.Dy()
	if w*op.Height > h*op.Width {
		cw := max(h*op.Width/op.Height, 1)
		x0 := b.Min.X + (w-cw)/2
		return image.Rect(x0, b.Min.Y, x0+cw, b.Max.Y)
	}
	ch := max(w*op.Height/op.Width, 1)
	y0 := b.Min.Y + (h-ch)/2
	return image.Rect(b.Min.X, y0, b.Max.X, y0+ch)
}

// TargetSize computes the output dimensions of op for a w x h source.
func TargetSize(w, h int, op Op) (int, int) {
	if w <= 0 || h <= 0 {
		return max(op.Width, 1), max(op.Height, 1)
	}
	switch op.Mode {
	case ModeFitWidth:
		return op.Width, max(h*op.Width/w, 1)
	case ModeFitHeight:
		return max(w*op.Height/h, 1), op.Height
	case ModeFit:
		if w <= op.Width && h <= op.Height {
			return w, h
		}
		if w*op.Height > h*op.Width {
			return op.Width, max(h*op.Width/w, 1)
		}
		return max(w*op.Height/h, 1), op.Height
	default:
		return op.Width, op.Height
	}
}
