package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
)

// StatusInfo is what `docrag stats` shows.
type StatusInfo struct {
	DataDir          string    `json:"data_dir"`
	Documents        int       `json:"documents"`
	Chunks           int       `json:"chunks"`
	Vectors          int       `json:"vectors"`
	IndexedDocuments int       `json:"indexed_documents"`
	PendingDocuments int       `json:"pending_documents"`
	LastUpload       time.Time `json:"last_upload"`

	// Sizes in bytes.
	DatabaseSize     int64 `json:"database_size"`
	KeywordIndexSize int64 `json:"keyword_index_size"`
	DocumentsSize    int64 `json:"documents_size"`

	EmbedderProvider string `json:"embedder_provider"`
	EmbedderModel    string `json:"embedder_model,omitempty"`
	EmbedderStatus   string `json:"embedder_status"` // ready, offline
	Dimensions       int    `json:"dimensions,omitempty"`
}

// StatusRenderer prints StatusInfo.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{out: out, styles: GetStyles(noColor)}
}

// Render prints info as text.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("docrag: "+info.DataDir))

	_, _ = fmt.Fprintf(r.out, "  Documents:   %d (%d indexed, %s)\n",
		info.Documents, info.IndexedDocuments, r.pending(info.PendingDocuments))
	_, _ = fmt.Fprintf(r.out, "  Chunks:      %d\n", info.Chunks)
	_, _ = fmt.Fprintf(r.out, "  Vectors:     %d\n", info.Vectors)
	if !info.LastUpload.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Last upload: %s\n", humanize.Time(info.LastUpload))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Storage:")
	_, _ = fmt.Fprintf(r.out, "    Database:      %s\n", FormatBytes(info.DatabaseSize))
	_, _ = fmt.Fprintf(r.out, "    Keyword index: %s\n", FormatBytes(info.KeywordIndexSize))
	_, _ = fmt.Fprintf(r.out, "    Documents:     %s\n", FormatBytes(info.DocumentsSize))
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Embedder:")
	_, _ = fmt.Fprintf(r.out, "    Provider: %s\n", info.EmbedderProvider)
	if info.EmbedderModel != "" {
		_, _ = fmt.Fprintf(r.out, "    Model:    %s (%d dims)\n", info.EmbedderModel, info.Dimensions)
	}
	_, _ = fmt.Fprintf(r.out, "    Status:   %s\n", r.renderStatus(info.EmbedderStatus))
	return nil
}

// RenderJSON prints info as indented JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func (r *StatusRenderer) pending(n int) string {
	s := fmt.Sprintf("%d pending", n)
	if n > 0 {
		return r.styles.Warning.Render(s)
	}
	return s
}

func (r *StatusRenderer) renderStatus(status string) string {
	switch status {
	case "ready":
		return r.styles.Success.Render(status)
	case "offline", "uninitialized":
		return r.styles.Warning.Render(status)
	default:
		return status
	}
}

// FormatBytes formats a byte count with IEC units.
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
