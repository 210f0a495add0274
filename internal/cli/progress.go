package cli

import (
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ScanProgressBar renders deck parsing progress as a byte-count bar.
type ScanProgressBar struct {
	bar *progressbar.ProgressBar
}

// NewScanProgressBar creates a progress reporter for interactive runs.
func NewScanProgressBar() *ScanProgressBar {
	return &ScanProgressBar{}
}

func (p *ScanProgressBar) OnScanStart(totalBytes int64) {
	p.bar = progressbar.NewOptions64(totalBytes,
		progressbar.OptionSetDescription("Parsing deck"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}

func (p *ScanProgressBar) OnScanRead(bytes int) {
	if p.bar != nil {
		p.bar.Add(bytes)
	}
}

func (p *ScanProgressBar) OnScanComplete(blocks int) {
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
