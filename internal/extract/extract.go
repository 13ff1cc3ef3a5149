// Package extract reads the text of an uploaded document.
package extract

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	derrors "github.com/Aman-CERP/docrag/internal/errors"
	"github.com/Aman-CERP/docrag/internal/store"
)

// MaxFileSize is the largest file Text will read (50MB).
const MaxFileSize int64 = 50 * 1024 * 1024

// Text returns the text content of the file at path, interpreted according
// to docType. Plain text and markdown are decoded as UTF-8, or as UTF-16 when
// the file starts with a UTF-16 byte order mark; a UTF-8 BOM is dropped and
// invalid sequences become U+FFFD. Markdown is returned as written.
//
// PDF text extraction is not supported and yields an input error.
func Text(path string, docType store.DocumentType) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", derrors.New(derrors.ErrCodeFileNotFound, "file not found: "+path, err)
		}
		return "", derrors.InputError("cannot read "+path, err)
	}
	if info.IsDir() {
		return "", derrors.New(derrors.ErrCodeInvalidPath, path+" is a directory", nil)
	}
	if info.Size() > MaxFileSize {
		return "", derrors.InputError(
			fmt.Sprintf("%s is %d bytes, larger than the %d byte limit", path, info.Size(), MaxFileSize), nil)
	}

	switch docType {
	case store.DocumentTypeTxt, store.DocumentTypeMd:
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", derrors.InputError("cannot read "+path, err)
		}
		return decode(raw)

	case store.DocumentTypePDF:
		return "", derrors.New(derrors.ErrCodeUnsupportedType, "PDF text extraction is not available", nil).
			WithDetail("path", path).
			WithSuggestion("Convert the PDF to .txt or .md and upload that instead")

	default:
		return "", derrors.New(derrors.ErrCodeUnsupportedType,
			fmt.Sprintf("unsupported document type %q", docType), nil)
	}
}

func decode(raw []byte) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return "", derrors.InputError("cannot decode text", err)
	}
	return strings.ToValidUTF8(string(out), "�"), nil
}
