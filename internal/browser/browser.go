// Package browser drives a headless Chromium via chromedp so the agent can
// read pages that need JavaScript, which a plain HTTP fetch cannot.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

type Config struct {
	Enabled    bool
	Headless   bool
	ChromePath string
}

type Controller struct {
	cfg    Config
	alloc  context.Context
	cancel context.CancelFunc
}

func New(cfg Config) *Controller {
	return &Controller{cfg: cfg}
}

func (c *Controller) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		return nil
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ChromePath))
	}

	alloc, cancel := chromedp.NewExecAllocator(ctx, opts...)
	c.alloc = alloc
	c.cancel = cancel

	probe, probeCancel := chromedp.NewContext(alloc)
	defer probeCancel()
	if err := chromedp.Run(probe); err != nil {
		cancel()
		c.alloc = nil
		return fmt.Errorf("start browser: %w", err)
	}
	return nil
}

func (c *Controller) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// ReadPage navigates to url and returns the rendered visible text.
func (c *Controller) ReadPage(ctx context.Context, url string) (string, error) {
	if c.alloc == nil {
		return "", fmt.Errorf("browser not started")
	}
	tab, cancel := chromedp.NewContext(c.alloc)
	defer cancel()
	tab, timeoutCancel := context.WithTimeout(tab, 30*time.Second)
	defer timeoutCancel()

	var body string
	err := chromedp.Run(tab,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Text("body", &body, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return squeezeWhitespace(body), nil
}

// Screenshot captures a full-page PNG of url.
func (c *Controller) Screenshot(ctx context.Context, url string) ([]byte, error) {
	if c.alloc == nil {
		return nil, fmt.Errorf("browser not started")
	}
	tab, cancel := chromedp.NewContext(c.alloc)
	defer cancel()
	tab, timeoutCancel := context.WithTimeout(tab, 30*time.Second)
	defer timeoutCancel()

	var buf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return nil, fmt.Errorf("screenshot %s: %w", url, err)
	}
	return buf, nil
}

func squeezeWhitespace(text string) string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
