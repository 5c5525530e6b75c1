// Package kobo is a small client for the KoBoToolbox v2 API: form listing,
// submission counts and paged submission fetches.
package kobo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var (
	ErrUnauthorized  = errors.New("kobo: unauthorized")
	ErrFormNotFound  = errors.New("kobo: form not found")
	ErrRateLimited   = errors.New("kobo: rate limited")
	ErrUnavailable   = errors.New("kobo: service unavailable")
	ErrMalformedPage = errors.New("kobo: malformed response")
)

// DefaultBaseURL is the public KoBoToolbox server.
const DefaultBaseURL = "https://kf.kobotoolbox.org"

const (
	defaultPageSize   = 500
	defaultMaxRetries = 4
	maxRetryAfter     = time.Minute
	maxBodyBytes      = 64 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL  string
	Token    string
	PageSize int
	// MaxRetries is the number of retries after the first attempt of a
	// request; zero disables retrying and a negative value means the default.
	MaxRetries int

	// RetryInitial is the first backoff interval; zero means the backoff default.
	RetryInitial time.Duration
	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// Client talks to one KoBoToolbox server with one API token.
type Client struct {
	base         *url.URL
	http         *http.Client
	pageSize     int
	maxRetries   int
	retryInitial time.Duration
	log          *zap.Logger
}

// New builds a Client. The token is sent as "Authorization: Token <token>".
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	raw := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if raw == "" {
		raw = DefaultBaseURL
	}
	base, err := url.Parse(raw)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("kobo: invalid base url %q", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var rt http.RoundTripper = http.DefaultTransport
	if cfg.Transport != nil {
		rt = cfg.Transport
	}
	httpClient := &http.Client{Transport: rt}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Token"})
		httpClient = &http.Client{Transport: &oauth2.Transport{Source: src, Base: rt}}
	}

	c := &Client{
		base:         base,
		http:         httpClient,
		pageSize:     cfg.PageSize,
		maxRetries:   cfg.MaxRetries,
		retryInitial: cfg.RetryInitial,
		log:          logger,
	}
	if c.pageSize <= 0 {
		c.pageSize = defaultPageSize
	}
	if c.maxRetries < 0 {
		c.maxRetries = defaultMaxRetries
	}
	return c, nil
}

// Submission is one raw form submission.
type Submission struct {
	// ID is the submission's _id, stringified.
	ID string
	// SubmittedAt is the raw _submission_time value.
	SubmittedAt string
	// Fields is the full submission object.
	Fields map[string]any
}

// Page is one page of submissions.
type Page struct {
	Submissions []Submission
	// Count is the total number of submissions reported by the server.
	Count int
	// Next is the start offset of the following page; valid when HasMore.
	Next    int
	HasMore bool
}

// FetchPage returns the submissions of formID starting at offset start.
func (c *Client) FetchPage(ctx context.Context, formID string, start int) (Page, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("start", strconv.Itoa(start))
	q.Set("limit", strconv.Itoa(c.pageSize))

	body, err := c.get(ctx, "/api/v2/assets/"+url.PathEscape(formID)+"/data/", q)
	if err != nil {
		return Page{}, err
	}
	return decodePage(body, start)
}

func decodePage(body []byte, start int) (Page, error) {
	if !gjson.ValidBytes(body) {
		return Page{}, fmt.Errorf("%w: invalid JSON", ErrMalformedPage)
	}
	results := gjson.GetBytes(body, "results")
	if !results.IsArray() {
		return Page{}, fmt.Errorf("%w: missing results array", ErrMalformedPage)
	}

	var page Page
	for i, r := range results.Array() {
		if !r.IsObject() {
			return Page{}, fmt.Errorf("%w: result %d is not an object", ErrMalformedPage, i)
		}
		fields, _ := r.Value().(map[string]any)
		page.Submissions = append(page.Submissions, Submission{
			ID:          r.Get("_id").String(),
			SubmittedAt: r.Get("_submission_time").String(),
			Fields:      fields,
		})
	}

	n := len(page.Submissions)
	page.Next = start + n
	count := gjson.GetBytes(body, "count")
	if count.Exists() {
		page.Count = int(count.Int())
	}
	next := gjson.GetBytes(body, "next")
	switch {
	case n == 0:
		page.HasMore = false
	case next.Exists():
		page.HasMore = next.Type == gjson.String && next.String() != ""
	case count.Exists():
		page.HasMore = page.Next < page.Count
	default:
		page.HasMore = false
	}
	return page, nil
}

// SubmissionCount returns the number of submissions of formID.
func (c *Client) SubmissionCount(ctx context.Context, formID string) (int, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	body, err := c.get(ctx, "/api/v2/assets/"+url.PathEscape(formID)+"/data/", q)
	if err != nil {
		return 0, err
	}
	if !gjson.ValidBytes(body) {
		return 0, fmt.Errorf("%w: invalid JSON", ErrMalformedPage)
	}
	return int(gjson.GetBytes(body, "count").Int()), nil
}

// Form summarizes one KoBo asset.
type Form struct {
	UID              string `json:"uid"`
	Name             string `json:"name"`
	AssetType        string `json:"asset_type"`
	DeploymentActive bool   `json:"deployment_active"`
	SubmissionCount  int    `json:"submission_count"`
}

// ListForms returns the survey forms visible to the token.
func (c *Client) ListForms(ctx context.Context) ([]Form, error) {
	q := url.Values{}
	q.Set("format", "json")
	body, err := c.get(ctx, "/api/v2/assets/", q)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedPage)
	}
	results := gjson.GetBytes(body, "results")
	if !results.IsArray() {
		return nil, fmt.Errorf("%w: missing results array", ErrMalformedPage)
	}

	var forms []Form
	results.ForEach(func(_, r gjson.Result) bool {
		assetType := r.Get("asset_type").String()
		if assetType != "" && assetType != "survey" {
			return true
		}
		forms = append(forms, Form{
			UID:              r.Get("uid").String(),
			Name:             r.Get("name").String(),
			AssetType:        assetType,
			DeploymentActive: r.Get("deployment__active").Bool(),
			SubmissionCount:  int(r.Get("deployment__submission_count").Int()),
		})
		return true
	})
	return forms, nil
}

// get performs a GET with retries on 429 and 5xx. Other failures are
// returned immediately.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + path
	u.RawQuery = q.Encode()
	target := u.String()

	b := backoff.NewExponentialBackOff()
	if c.retryInitial > 0 {
		b.InitialInterval = c.retryInitial
	}

	// lastErr keeps the classified error when the final attempt asked for Retry-After.
	var lastErr error
	op := func() ([]byte, error) {
		body, status, retryAfter, err := c.do(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			return nil, lastErr
		}
		switch {
		case status >= 200 && status < 300:
			return body, nil
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrUnauthorized, status))
		case status == http.StatusNotFound:
			return nil, backoff.Permanent(fmt.Errorf("%w: status %d", ErrFormNotFound, status))
		case status == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("%w: status %d", ErrRateLimited, status)
		case status >= 500:
			lastErr = fmt.Errorf("%w: status %d", ErrUnavailable, status)
		default:
			return nil, backoff.Permanent(fmt.Errorf("kobo: unexpected status %d", status))
		}
		if retryAfter >= 0 {
			return nil, backoff.RetryAfter(retryAfter)
		}
		return nil, lastErr
	}

	body, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.maxRetries)+1),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.log.Warn("kobo request failed; retrying",
				zap.String("path", path),
				zap.Duration("wait", wait),
				zap.Error(err))
		}),
	)
	if err != nil {
		var ra *backoff.RetryAfterError
		if errors.As(err, &ra) && lastErr != nil {
			return nil, lastErr
		}
		return nil, err
	}
	return body, nil
}

// do issues one request. retryAfter is the server's Retry-After in seconds,
// or -1 when absent.
func (c *Client) do(ctx context.Context, target string) (body []byte, status int, retryAfter int, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, -1, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, -1, err
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, -1, err
	}
	return body, resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func parseRetryAfter(v string) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return -1
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		if time.Duration(secs)*time.Second > maxRetryAfter {
			return int(maxRetryAfter / time.Second)
		}
		return secs
	}
	if t, err := http.ParseTime(v); err == nil {
		secs := int(time.Until(t) / time.Second)
		if secs < 0 {
			return 0
		}
		if time.Duration(secs)*time.Second > maxRetryAfter {
			return int(maxRetryAfter / time.Second)
		}
		return secs
	}
	return -1
}
