// Package browser opens links in the user's default web browser.
package browser

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/pkg/browser"
)

// ErrUnsupportedURL is returned for links that are not http or https.
var ErrUnsupportedURL = errors.New("unsupported url")

// openURL launches the platform's URL handler.
var openURL = browser.OpenURL

func init() {
	// the terminal belongs to the reader; keep handler output off it
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
}

// Open hands rawURL to the platform's URL handler (xdg-open, open or
// rundll32). Only http and https links with a host are accepted.
func Open(rawURL string) error {
	if err := check(rawURL); err != nil {
		return err
	}
	if err := openURL(rawURL); err != nil {
		return fmt.Errorf("open %s: %w", rawURL, err)
	}
	return nil
}

func check(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrUnsupportedURL, rawURL)
	}
	return nil
}
