// Package fsutil copies static trees and co-located assets into the output
// directory.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// CopyFileIfNeeded copies src to dest unless dest already has the same size
// and a modification time no older than src. With hardLink the file is
// linked instead of copied; a failed link falls back to a copy.
func CopyFileIfNeeded(src, dest string, hardLink bool) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return wrap(err, "stat source file", src)
	}
	if destInfo, err := os.Stat(dest); err == nil {
		if destInfo.Size() == srcInfo.Size() && !destInfo.ModTime().Before(srcInfo.ModTime()) {
			return nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return wrap(err, "create directory", filepath.Dir(dest))
	}

	if hardLink {
		_ = os.Remove(dest)
		if err := os.Link(src, dest); err == nil {
			return nil
		}
	}

	f, err := os.Open(src)
	if err != nil {
		return wrap(err, "open source file", src)
	}
	defer func() { _ = f.Close() }()
	if err := atomic.WriteFile(dest, f); err != nil {
		return wrap(err, "copy file", dest)
	}
	_ = os.Chtimes(dest, srcInfo.ModTime(), srcInfo.ModTime())
	return nil
}

// CopyDir copies every file below src into dest, keeping relative paths.
// A missing src is not an error.
func CopyDir(src, dest string, hardLink bool) (int, error) {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	copied := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if err := CopyFileIfNeeded(path, target, hardLink); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		if _, ok := foundation.AsClassified(err); ok {
			return copied, err
		}
		return copied, wrap(err, "copy directory", src)
	}
	return copied, nil
}

func wrap(err error, msg, path string) error {
	return foundation.WrapError(err, foundation.CategoryFileSystem, msg).WithContext("path", path).Build()
}
