package frontmatter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplit_NoFrontmatter_ReturnsBodyOnly(t *testing.T) {
	input := []byte("# Title\n\nHello\n")

	fm, body, had, _, err := Split(input)
	require.NoError(t, err)
	require.False(t, had)
	require.Empty(t, fm)
	require.Equal(t, input, body)
}

func TestSplit_YAMLFrontmatter_SplitsFrontmatterAndBody(t *testing.T) {
	fm, body, had, _, err := Split([]byte("---\ntitle: Hello\n---\n# Title\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Hello\n"), fm)
	require.Equal(t, []byte("# Title\n"), body)
}

func TestSplit_ClosingDelimiterAtEOF(t *testing.T) {
	fm, body, had, _, err := Split([]byte("---\ntitle: Hello\n---"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, []byte("title: Hello\n"), fm)
	require.Empty(t, body)
}

func TestSplit_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, had, _, err := Split([]byte("---\ntitle: Hello\n# Title\n"))
	require.False(t, had)
	require.True(t, errors.Is(err, ErrMissingClosingDelimiter))
}

func TestSplit_CRLF(t *testing.T) {
	fm, body, had, style, err := Split([]byte("---\r\ntitle: Hello\r\n---\r\n# Title\r\n"))
	require.NoError(t, err)
	require.True(t, had)
	require.Equal(t, "\r\n", style.Newline)
	require.Equal(t, []byte("title: Hello\r\n"), fm)
	require.Equal(t, []byte("# Title\r\n"), body)
}

func TestJoin_RoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("# Title\n\nHello\n"),
		[]byte("---\ntitle: Hello\n---\n# Title\n"),
		[]byte("---\n---\n# Title\n"),
		[]byte("---\r\ntitle: Hello\r\n---\r\n# Title\r\n"),
	}
	for _, input := range cases {
		fm, body, had, style, err := Split(input)
		require.NoError(t, err)
		require.Equal(t, input, Join(fm, body, had, style))
	}
}

func TestDecode_RejectsUnknownKeys(t *testing.T) {
	var meta struct {
		Title string `yaml:"title"`
	}
	require.NoError(t, Decode([]byte("title: Hello\n"), &meta))
	require.Equal(t, "Hello", meta.Title)

	err := Decode([]byte("titel: typo\n"), &meta)
	require.Error(t, err)
}

func TestDecode_EmptyLeavesDefaults(t *testing.T) {
	meta := struct {
		Render bool `yaml:"render"`
	}{Render: true}
	require.NoError(t, Decode([]byte("  \n"), &meta))
	require.True(t, meta.Render)
}

func TestSerializeYAML_SortsKeys(t *testing.T) {
	out, err := SerializeYAML(map[string]any{
		"title": "Home",
		"extra": map[string]any{"b": 1, "a": true},
	}, Style{})
	require.NoError(t, err)
	require.Equal(t, "extra:\n  a: true\n  b: 1\ntitle: Home\n", string(out))
}
