package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// maxErrorBody caps how much of a non-OK response body is kept for logging.
const maxErrorBody = 64 * 1024

// Options configures the HTTP client shared by every request.
type Options struct {
	UserAgent string
	Headers   map[string]string
	Timeout   time.Duration // 0 means no client timeout
}

// Fetcher issues GET requests with a fixed header set.
type Fetcher struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
}

func NewFetcher(opts Options) *Fetcher {
	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return &Fetcher{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		headers:   headers,
	}
}

// Response is a fully read HTTP response.
type Response struct {
	URL         string
	StatusCode  int
	Status      string
	ContentType string
	Body        []byte
}

func (r *Response) OK() bool {
	return r.StatusCode == http.StatusOK
}

func (f *Fetcher) newRequest(ctx context.Context, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	return req, nil
}

// Get fetches url and reads the body. A non-OK status is not an error; the error
// return is reserved for transport failures.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	resp, err := f.Open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if resp.StatusCode != http.StatusOK {
		body = io.LimitReader(resp.Body, maxErrorBody)
	}
	bodyBytes, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		URL:         url,
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        bodyBytes,
	}, nil
}

// Open starts a GET and returns the live response. The caller closes the body.
func (f *Fetcher) Open(ctx context.Context, url string) (*http.Response, error) {
	req, err := f.newRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	return resp, nil
}

// Describe summarizes a response for log lines: the status plus the page title or
// the first part of the body.
func Describe(r *Response) string {
	if r == nil {
		return ""
	}
	summary := bodySummary(r)
	if summary == "" {
		return r.Status
	}
	return fmt.Sprintf("%s: %s", r.Status, summary)
}

func bodySummary(r *Response) string {
	const limit = 200

	if strings.Contains(strings.ToLower(r.ContentType), "html") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(r.Body)))
		if err == nil {
			if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
				return truncate(title, limit)
			}
			return truncate(strings.Join(strings.Fields(doc.Find("body").Text()), " "), limit)
		}
	}
	return truncate(strings.Join(strings.Fields(string(r.Body)), " "), limit)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
