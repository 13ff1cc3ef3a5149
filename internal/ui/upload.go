package ui

import (
	"io"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
)

// UploadProgress is a one-line bar for bulk uploads. It is a no-op when
// disabled or when total is zero.
type UploadProgress struct {
	bar *progressbar.ProgressBar
}

// NewUploadProgress creates a bar over total files written to out.
func NewUploadProgress(out io.Writer, total int, enabled bool) *UploadProgress {
	if !enabled || total <= 0 {
		return &UploadProgress{}
	}
	return &UploadProgress{bar: progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("uploading"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)}
}

// Done advances the bar past path.
func (p *UploadProgress) Done(path string) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(filepath.Base(path))
	_ = p.bar.Add(1)
}

// Finish completes and clears the bar.
func (p *UploadProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

// Enabled reports whether a bar is drawn.
func (p *UploadProgress) Enabled() bool {
	return p.bar != nil
}
