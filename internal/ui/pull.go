package ui

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

// PullProgress draws a byte bar for a model download. Each layer digest
// restarts the bar. It is a no-op when disabled.
type PullProgress struct {
	out     io.Writer
	enabled bool
	digest  string
	bar     *progressbar.ProgressBar
}

// NewPullProgress creates a pull bar writing to out.
func NewPullProgress(out io.Writer, enabled bool) *PullProgress {
	return &PullProgress{out: out, enabled: enabled}
}

// Update moves the bar for digest to completed of total bytes.
func (p *PullProgress) Update(digest string, completed, total int64) {
	if !p.enabled || total <= 0 {
		return
	}
	if p.bar == nil || digest != p.digest {
		p.Finish()
		p.digest = digest
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(shortDigest(digest)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(32),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set64(completed)
}

// Finish completes the current bar.
func (p *PullProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	p.bar = nil
}

func shortDigest(d string) string {
	if len(d) > 19 {
		return d[:19]
	}
	return d
}
