package twilio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxMediaBytes = 20 << 20

// DefaultMediaHost serves inbound message media for every Twilio account.
const DefaultMediaHost = "api.twilio.com"

// HTTPStatusError captures a non-2xx media download.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("twilio: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// MediaFetcher downloads inbound message media using the account credentials,
// since Twilio media URLs require HTTP basic auth.
type MediaFetcher struct {
	pool       credentialSelector
	httpClient *http.Client
	hosts      map[string]bool
}

type MediaOption func(*MediaFetcher)

// WithMediaHosts replaces the hosts media may be fetched from.
func WithMediaHosts(hosts ...string) MediaOption {
	return func(f *MediaFetcher) {
		f.hosts = map[string]bool{}
		for _, h := range hosts {
			f.hosts[strings.ToLower(h)] = true
		}
	}
}

func WithHTTPClient(c *http.Client) MediaOption {
	return func(f *MediaFetcher) {
		f.httpClient = c
	}
}

func NewMediaFetcher(pool credentialSelector, opts ...MediaOption) (*MediaFetcher, error) {
	if pool == nil {
		return nil, errors.New("twilio: credential pool must not be nil")
	}
	f := &MediaFetcher{
		pool: pool,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if req.URL.Scheme != "https" {
					return fmt.Errorf("twilio: refusing redirect to %s", req.URL.Scheme)
				}
				if len(via) >= 10 {
					return errors.New("twilio: too many redirects")
				}
				return nil
			},
		},
		hosts: map[string]bool{DefaultMediaHost: true},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch returns the media bytes at url. Only https URLs on the allowed media
// hosts are fetched, since the request carries the account credentials.
// Redirects to the storage host are followed by the HTTP client, which drops
// the credentials when the host changes.
func (f *MediaFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("twilio: media url must not be empty")
	}
	if err := f.checkURL(url); err != nil {
		return nil, err
	}
	cred, err := f.pool.Select(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("twilio: create media request: %w", err)
	}
	req.SetBasicAuth(cred.AccountSID, cred.AuthToken)

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twilio: fetch media: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, maxMediaBytes+1))
	if err != nil {
		return nil, fmt.Errorf("twilio: read media body: %w", err)
	}
	if len(buf) > maxMediaBytes {
		return nil, fmt.Errorf("twilio: media exceeds %d bytes", maxMediaBytes)
	}
	return buf, nil
}

func (f *MediaFetcher) checkURL(raw string) error {
	u, err := neturl.Parse(raw)
	if err != nil {
		return fmt.Errorf("twilio: parse media url: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("twilio: media url must use https, got %q", u.Scheme)
	}
	if !f.hosts[strings.ToLower(u.Hostname())] {
		return fmt.Errorf("twilio: media host %q is not allowed", u.Hostname())
	}
	return nil
}
