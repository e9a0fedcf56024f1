// Package fetch retrieves the remote cask catalog, its install analytics,
// and tap-contributed entries.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/blackwell-systems/caskctl/internal/cask"
	"github.com/blackwell-systems/caskctl/internal/execx"
)

const (
	// CatalogURL is the full cask index of the default repository.
	CatalogURL = "https://formulae.brew.sh/api/cask.json"

	// AnalyticsURL is the 365-day install count feed.
	AnalyticsURL = "https://formulae.brew.sh/api/analytics/cask-install/365d.json"

	userAgent      = "caskctl"
	defaultTimeout = 60 * time.Second
)

// Sentinel errors distinguishing transport failures from payload failures;
// the cache fallback treats them the same but callers log them differently.
var (
	ErrNetwork = errors.New("network request failed")
	ErrDecode  = errors.New("malformed payload")
)

// Client fetches remote catalog resources. URLs are injectable for tests.
type Client struct {
	HTTP         *http.Client
	CatalogURL   string
	AnalyticsURL string

	runner    execx.Runner
	tapScript string
	logger    hclog.Logger
}

// NewClient creates a Client. runner and tapScript are only needed when tap
// fetching is enabled; logger may be nil.
func NewClient(runner execx.Runner, tapScript string, logger hclog.Logger) *Client {
	if logger == nil {
		logger = hclog.Default()
	}
	return &Client{
		HTTP:         &http.Client{Timeout: defaultTimeout},
		CatalogURL:   CatalogURL,
		AnalyticsURL: AnalyticsURL,
		runner:       runner,
		tapScript:    tapScript,
		logger:       logger.Named("fetch"),
	}
}

// get retrieves url and returns the body bytes.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: HTTP %d", ErrNetwork, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	return body, nil
}

// Catalog GETs the remote catalog and returns both the decoded entries and
// the raw bytes, so the caller can persist the payload without
// re-serializing it.
func (c *Client) Catalog(ctx context.Context) ([]cask.RawEntry, []byte, error) {
	raw, err := c.get(ctx, c.CatalogURL)
	if err != nil {
		return nil, nil, err
	}
	entries, err := DecodeCatalog(raw)
	if err != nil {
		return nil, nil, err
	}
	return entries, raw, nil
}

// Analytics GETs the install-count feed, returning the decoded map and the
// raw bytes.
func (c *Client) Analytics(ctx context.Context) (cask.Analytics, []byte, error) {
	raw, err := c.get(ctx, c.AnalyticsURL)
	if err != nil {
		return nil, nil, err
	}
	m, err := DecodeAnalytics(raw)
	if err != nil {
		return nil, nil, err
	}
	return m, raw, nil
}

// DecodeCatalog decodes a catalog payload. Cached files replay through this
// same decoder.
func DecodeCatalog(raw []byte) ([]cask.RawEntry, error) {
	var entries []cask.RawEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: catalog: %v", ErrDecode, err)
	}
	return entries, nil
}

type analyticsPayload struct {
	Items []struct {
		Cask  string `json:"cask"`
		Count string `json:"count"`
	} `json:"items"`
}

// DecodeAnalytics decodes the analytics payload. Counts arrive as
// comma-formatted strings ("12,345"); a malformed count degrades to 0 rather
// than failing the feed.
func DecodeAnalytics(raw []byte) (cask.Analytics, error) {
	var payload analyticsPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: analytics: %v", ErrDecode, err)
	}

	m := make(cask.Analytics, len(payload.Items))
	for _, item := range payload.Items {
		if item.Cask == "" {
			continue
		}
		n, err := strconv.Atoi(strings.ReplaceAll(item.Count, ",", ""))
		if err != nil {
			n = 0
		}
		m[item.Cask] = n
	}
	return m, nil
}

// TapEntries collects catalog entries contributed by third-party taps by
// invoking the configured script and scraping the JSON array out of its
// output. Tap data is best-effort: any failure returns an empty slice.
func (c *Client) TapEntries(ctx context.Context) []cask.RawEntry {
	if c.runner == nil || c.tapScript == "" {
		return nil
	}

	out, err := c.runner.Run(ctx, execx.Command{Path: c.tapScript})
	if err != nil {
		c.logger.Debug("tap script failed", "script", c.tapScript, "error", err)
		return nil
	}

	payload, ok := extractJSONArray(out)
	if !ok {
		c.logger.Debug("no JSON array in tap script output", "script", c.tapScript)
		return nil
	}

	var entries []cask.RawEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		c.logger.Debug("malformed tap entries", "error", err)
		return nil
	}
	return entries
}

// extractJSONArray returns the substring from the first '[' to its matching
// ']'. The script may surround the array with arbitrary preamble and noise.
func extractJSONArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
