// Package sharepoint implements the source client over the SharePoint
// REST API: windowed OData queries, skip/top and next-link pagination,
// NTLM-style basic or bearer authentication and retry with exponential
// backoff on transient failures.
package sharepoint

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
	"github.com/custodia-labs/spsync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RetryDelay is the initial delay between retries; each retry
	// doubles it.
	RetryDelay = time.Second

	// PageSize is the number of rows requested per page for skip/top
	// pagination. It is also the server-side ceiling.
	PageSize = 5000

	// RequestRate is the proactive throttle in requests per second.
	RequestRate = 10
)

// spTimeFormat is the datetime literal format OData filters accept.
const spTimeFormat = "2006-01-02T15:04:05Z"

// Client talks to one SharePoint farm.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retries    int

	username string
	password string
	token    oauth2.TokenSource
}

var _ driven.SourceClient = (*Client)(nil)

// NewClient builds a client from the SharePoint settings. A configured
// access token wins over basic credentials.
func NewClient(settings *domain.Settings) (*Client, error) {
	sp := settings.SharePoint

	transport := &http.Transport{}
	if !sp.SecureConnection {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	} else if sp.CertificatePath != "" {
		pem, err := os.ReadFile(sp.CertificatePath)
		if err != nil {
			return nil, fmt.Errorf("read certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("certificate %s holds no usable PEM data", sp.CertificatePath)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(sp.HostURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout, Transport: transport},
		limiter:    rate.NewLimiter(rate.Limit(RequestRate), 1),
		retries:    settings.RetryCount,
	}
	if sp.AccessToken != "" {
		c.token = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: sp.AccessToken})
	} else {
		c.username = sp.Username
		if sp.Domain != "" {
			c.username = sp.Domain + "\\" + sp.Username
		}
		c.password = sp.Password
	}
	return c, nil
}

// Query builds the OData window filter for t. Sites and lists filter on
// LastItemModifiedDate, items on Modified; the item filter starts with
// an ampersand because item URLs already carry a select clause.
func (c *Client) Query(window domain.Window, t domain.ObjectType) string {
	start := window.Start.UTC().Format(spTimeFormat)
	end := window.End.UTC().Format(spTimeFormat)

	switch t {
	case domain.ObjectSites:
		return fmt.Sprintf("?$filter=(LastItemModifiedDate ge datetime'%s') and (LastItemModifiedDate le datetime'%s')", start, end)
	case domain.ObjectLists:
		return fmt.Sprintf("?$expand=RootFolder&$filter=(LastItemModifiedDate ge datetime'%s') and (LastItemModifiedDate le datetime'%s') and (Hidden eq false)", start, end)
	default:
		return fmt.Sprintf("&$filter=(Modified ge datetime'%s') and (Modified le datetime'%s')", start, end)
	}
}

// Fetch returns all result rows for relURL, following pagination
// according to hint.
func (c *Client) Fetch(ctx context.Context, relURL, query string, hint driven.FetchHint) ([]map[string]any, error) {
	switch hint {
	case driven.HintSites, driven.HintLists:
		return c.fetchPagedBySkip(ctx, relURL, query)
	case driven.HintListItems, driven.HintDriveItems, driven.HintAttachment:
		return c.fetchPagedByNextLink(ctx, relURL, query)
	default:
		body, err := c.get(ctx, c.baseURL+relURL+query)
		if err != nil {
			return nil, err
		}
		rows, _, err := parseResults(body)
		return rows, err
	}
}

// fetchPagedBySkip pages with $skip/$top until a short page arrives.
func (c *Client) fetchPagedBySkip(ctx context.Context, relURL, query string) ([]map[string]any, error) {
	var all []map[string]any
	for skip := 0; ; skip += PageSize {
		u := fmt.Sprintf("%s%s%s%s$skip=%d&$top=%d", c.baseURL, relURL, query, paramSeparator(relURL, query), skip, PageSize)
		body, err := c.get(ctx, u)
		if err != nil {
			return nil, err
		}
		rows, _, err := parseResults(body)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < PageSize {
			return all, nil
		}
	}
}

// fetchPagedByNextLink follows the server's __next links.
func (c *Client) fetchPagedByNextLink(ctx context.Context, relURL, query string) ([]map[string]any, error) {
	var all []map[string]any
	next := c.baseURL + relURL + query
	for next != "" {
		body, err := c.get(ctx, next)
		if err != nil {
			return nil, err
		}
		rows, nextLink, err := parseResults(body)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		next = nextLink
	}
	return all, nil
}

// FetchBinary downloads a file payload.
func (c *Client) FetchBinary(ctx context.Context, relURL string) ([]byte, error) {
	return c.get(ctx, c.baseURL+relURL)
}

// Probe checks object existence. A 404 or an empty filtered result set
// reports false without error.
func (c *Client) Probe(ctx context.Context, relURL, query string) (bool, error) {
	body, err := c.get(ctx, c.baseURL+relURL+query)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if query == "" {
		return true, nil
	}
	rows, _, err := parseResults(body)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// get issues one GET with retry. Server errors and network failures
// back off exponentially; client errors are terminal.
func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := RetryDelay << (attempt - 1)
			logger.Debug("Retrying %s in %s (attempt %d/%d)", u, delay, attempt, c.retries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.doGet(ctx, u)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("request failed after %d retries: %w", c.retries, lastErr)
}

// doGet issues a single GET and classifies the outcome.
func (c *Client) doGet(ctx context.Context, u string) (body []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json;odata=verbose")
	if c.token != nil {
		tok, err := c.token.Token()
		if err != nil {
			return nil, false, fmt.Errorf("resolve token: %w", err)
		}
		tok.SetAuthHeader(req)
	} else {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("request %s: %w", u, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return payload, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %w", domain.ErrNotFound, &APIError{StatusCode: resp.StatusCode, Message: snippet(payload), URL: u})
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("%w: %w", domain.ErrAuthFailed, &APIError{StatusCode: resp.StatusCode, Message: snippet(payload), URL: u})
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, &APIError{StatusCode: resp.StatusCode, Message: snippet(payload), URL: u}
	default:
		return nil, false, &APIError{StatusCode: resp.StatusCode, Message: snippet(payload), URL: u}
	}
}

// parseResults decodes a verbose OData response into its result rows
// and next link. Single-object responses yield one row.
func parseResults(body []byte) ([]map[string]any, string, error) {
	var envelope struct {
		D json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.D) == 0 {
		return nil, "", nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(envelope.D, &fields); err != nil {
		return nil, "", fmt.Errorf("decode response body: %w", err)
	}

	raw, ok := fields["results"]
	if !ok {
		// Single-object responses carry the attributes directly under d.
		var single map[string]any
		if err := json.Unmarshal(envelope.D, &single); err != nil {
			return nil, "", fmt.Errorf("decode response object: %w", err)
		}
		return []map[string]any{single}, "", nil
	}

	var rows []map[string]any
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, "", fmt.Errorf("decode result rows: %w", err)
	}
	var next string
	if rawNext, ok := fields["__next"]; ok {
		_ = json.Unmarshal(rawNext, &next)
	}
	return rows, next, nil
}

// paramSeparator picks the separator joining the pagination parameters
// onto the URL built so far.
func paramSeparator(relURL, query string) string {
	if strings.Contains(relURL, "?") || strings.Contains(query, "?") {
		return "&"
	}
	return "?"
}

func snippet(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		s = s[:max]
	}
	return s
}
