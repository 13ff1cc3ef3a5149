package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_Messages(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"status with icon", func(w *Writer) { w.Status("→", "Uploading") }, "→ Uploading\n"},
		{"status without icon", func(w *Writer) { w.Status("", "detail") }, "   detail\n"},
		{"success", func(w *Writer) { w.Successf("Indexed %d documents", 3) }, "✓ Indexed 3 documents\n"},
		{"warning", func(w *Writer) { w.Warningf("%d pending", 2) }, "! 2 pending\n"},
		{"error", func(w *Writer) { w.Errorf("failed: %s", "x") }, "✗ failed: x\n"},
		{"text", func(w *Writer) { w.Text("plain") }, "plain\n"},
		{"newline", func(w *Writer) { w.Newline() }, "\n"},
		{"block", func(w *Writer) { w.Block("a\nb") }, "\n  a\n  b\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(New(buf))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestWriter_JSON(t *testing.T) {
	// Given: a writer
	buf := &bytes.Buffer{}
	w := New(buf)

	// When: writing a value as JSON
	require.NoError(t, w.JSON(map[string]int{"documents": 2}))

	// Then: it is indented and decodable
	assert.Contains(t, buf.String(), "\n  \"documents\": 2\n")
	var m map[string]int
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, 2, m["documents"])
}

func TestWriter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	err := New(buf).Table([]string{"ID", "NAME"}, [][]string{
		{"1", "notes.md"},
		{"22", "a.txt"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID  NAME", lines[0])
	assert.Equal(t, "1   notes.md", lines[1])
	assert.Equal(t, "22  a.txt", lines[2])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a b c", Truncate("a\n b\t\tc", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
	assert.Equal(t, "unchanged", Truncate("unchanged", 0))
}
