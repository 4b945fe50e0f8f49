// Package favicon resolves favicon URLs for the pages shown in panes.
package favicon

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/quadpane/quadpane/internal/logging"
)

const (
	// DuckDuckGo favicon API URL template.
	duckduckgoIconURL = "https://icons.duckduckgo.com/ip3/%s.ico"
	// HTTP client timeout for favicon lookups.
	defaultFetchTimeout = 5 * time.Second
	// Upper bound on page bytes scanned for a <link rel=icon>.
	maxScanBytes = 512 * 1024
)

// Fetcher locates favicons on the network.
type Fetcher struct {
	client       *http.Client
	iconTemplate string
}

// NewFetcher creates a Fetcher. A zero timeout falls back to the
// default; an empty template falls back to the DuckDuckGo icon API.
func NewFetcher(timeout time.Duration, iconTemplate string) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if iconTemplate == "" {
		iconTemplate = duckduckgoIconURL
	}
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		iconTemplate: iconTemplate,
	}
}

// Locate finds a favicon URL for a page: the icon service first, then a
// scan of the page markup. An empty result with a nil error means the
// page has no discoverable icon.
func (f *Fetcher) Locate(ctx context.Context, pageURL, host string) (string, error) {
	log := logging.FromContext(ctx)

	icon, probeErr := f.probeIconService(ctx, host)
	if probeErr != nil {
		log.Debug().Err(probeErr).Str("host", host).Msg("icon service probe failed")
	}
	if icon != "" {
		log.Debug().Str("host", host).Msg("favicon resolved by icon service")
		return icon, nil
	}

	icon, scanErr := f.scanPage(ctx, pageURL)
	if scanErr != nil {
		if probeErr != nil {
			return "", probeErr
		}
		return "", scanErr
	}
	if icon != "" {
		log.Debug().Str("host", host).Msg("favicon resolved from page markup")
	}
	return icon, nil
}

// probeIconService asks the icon service for the host's icon. A non-OK
// or empty response means the service has none.
func (f *Fetcher) probeIconService(ctx context.Context, host string) (string, error) {
	iconURL := fmt.Sprintf(f.iconTemplate, url.QueryEscape(host))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, iconURL, http.NoBody)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	probe, err := io.ReadAll(io.LimitReader(resp.Body, 1))
	if err != nil || len(probe) == 0 {
		return "", nil
	}
	return iconURL, nil
}

// scanPage fetches the page and extracts the first icon link.
func (f *Fetcher) scanPage(ctx context.Context, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	return iconLink(io.LimitReader(resp.Body, maxScanBytes), base), nil
}

// iconLink tokenizes HTML looking for <link rel=...icon... href=...>
// and resolves the href against the page URL. The scan stops at the
// document body; icon links live in the head.
func iconLink(r io.Reader, base *url.URL) string {
	tokenizer := html.NewTokenizer(r)
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return ""
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			tag := string(name)
			if tag == "body" {
				return ""
			}
			if tag != "link" || !hasAttr {
				continue
			}

			var rel, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch string(key) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}
			if href == "" || !strings.Contains(rel, "icon") {
				continue
			}

			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				continue
			}
			return base.ResolveReference(ref).String()
		}
	}
}
