package stylesheet

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	foundation "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

func write(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func TestCompile_MissingDir(t *testing.T) {
	out, err := NewCompiler("sass").Compile(context.Background(), filepath.Join(t.TempDir(), "sass"))
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestCompile_PlainCSSSkipsPartials(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "site.css"), "body {\n  color: #ff0000;\n}\n")
	write(t, filepath.Join(dir, "nested", "print.css"), "p { margin: 0px; }")
	write(t, filepath.Join(dir, "_vars.css"), "a { color: blue }")

	out, err := NewCompiler("sass").Compile(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.Equal(t, []string{"nested"}, out[0].Components)
	require.Equal(t, "print.css", out[0].Filename)
	require.Equal(t, "p{margin:0}", string(out[0].Content))

	require.Empty(t, out[1].Components)
	require.Equal(t, "site.css", out[1].Filename)
	require.Equal(t, "body{color:red}", string(out[1].Content))
}

func TestCompile_ExternalCompiler(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script compiler")
	}
	bin := filepath.Join(t.TempDir(), "fake-sass")
	write(t, bin, "#!/bin/sh\ncat \"$2\"\n")
	require.NoError(t, os.Chmod(bin, 0o700))

	dir := t.TempDir()
	write(t, filepath.Join(dir, "main.scss"), "h1 { font-weight: bold; }")

	out, err := NewCompiler(bin).Compile(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "main.css", out[0].Filename)
	require.Equal(t, "h1{font-weight:700}", string(out[0].Content))
}

func TestCompile_MissingCompiler(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "main.scss"), "h1 { }")

	_, err := NewCompiler(filepath.Join(t.TempDir(), "no-such-sass")).Compile(context.Background(), dir)
	require.Error(t, err)
	require.True(t, foundation.HasCategory(err, foundation.CategoryConfig))
}

func TestCompile_DuplicateTargets(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "a.css"), "a{}")
	write(t, filepath.Join(dir, "a.scss"), "a{}")

	_, err := NewCompiler("sass").Compile(context.Background(), dir)
	require.Error(t, err)
	require.True(t, foundation.HasCategory(err, foundation.CategoryOutput))
}
