package checkout

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/browser"
)

// BrowserOpener launches the system browser.
type BrowserOpener struct {
	// Fallback also receives the URL so headless users can copy it.
	Fallback io.Writer
}

func (b BrowserOpener) Open(ctx context.Context, url string) error {
	if b.Fallback != nil {
		fmt.Fprintf(b.Fallback, "Opening checkout page: %s\n", url)
	}
	if err := browser.OpenURL(url); err != nil {
		return err
	}
	return nil
}

// PrintOpener only prints the URL.
type PrintOpener struct {
	W io.Writer
}

func (p PrintOpener) Open(ctx context.Context, url string) error {
	_, err := fmt.Fprintf(p.W, "Open this URL to pay: %s\n", url)
	return err
}
