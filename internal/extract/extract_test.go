package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestText_PlainAndMarkdown(t *testing.T) {
	txt := writeFile(t, "a.txt", []byte("hello\nworld"))
	got, err := Text(txt, store.DocumentTypeTxt)
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", got)

	md := writeFile(t, "a.md", []byte("# Title\n\nSome *text*."))
	got, err = Text(md, store.DocumentTypeMd)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n\nSome *text*.", got)
}

func TestText_Encodings(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"utf8 bom dropped", []byte("\xef\xbb\xbfcafé"), "café"},
		{"utf16le with bom", []byte{0xff, 0xfe, 'h', 0, 'i', 0}, "hi"},
		{"utf16be with bom", []byte{0xfe, 0xff, 0, 'h', 0, 'i'}, "hi"},
		{"invalid bytes replaced", []byte("a\xffb"), "a�b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "f.txt", tt.data)
			got, err := Text(path, store.DocumentTypeTxt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestText_PDFIsUnsupported(t *testing.T) {
	path := writeFile(t, "a.pdf", []byte("%PDF-1.4"))
	_, err := Text(path, store.DocumentTypePDF)
	require.Error(t, err)
	assert.True(t, derrors.IsInput(err))
	assert.Equal(t, derrors.ErrCodeUnsupportedType, derrors.GetCode(err))
}

func TestText_MissingAndDirectory(t *testing.T) {
	_, err := Text(filepath.Join(t.TempDir(), "nope.txt"), store.DocumentTypeTxt)
	require.Error(t, err)
	assert.Equal(t, derrors.ErrCodeFileNotFound, derrors.GetCode(err))

	_, err = Text(t.TempDir(), store.DocumentTypeTxt)
	require.Error(t, err)
	assert.True(t, derrors.IsInput(err))
}
