// SPDX-License-Identifier: AGPL-3.0-only
package renderer

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ChromeEngine captures pages with headless Chrome. A fresh tab per
// capture keeps jobs isolated, the allocator is shared.
type ChromeEngine struct {
	allocCtx context.Context
	cancel   context.CancelFunc
}

func NewChromeEngine(execPath string) *ChromeEngine {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent("Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("force-color-profile", "srgb"),
	)
	if execPath != "" {
		opts = append(opts, chromedp.ExecPath(execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeEngine{allocCtx: allocCtx, cancel: cancel}
}

func (e *ChromeEngine) Capture(ctx context.Context, url string, width int) ([]byte, error) {

	tabCtx, cancelTab := chromedp.NewContext(e.allocCtx)
	defer cancelTab()

	// Mirror the caller's deadline onto the tab so a stuck navigation
	// is killed with the job.
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}

	var buf []byte
	err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(width), 800, 2, false),
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp run: %w", err)
	}

	return buf, nil
}

// Close tears down the shared allocator and any Chrome it spawned.
func (e *ChromeEngine) Close() {
	e.cancel()
}
