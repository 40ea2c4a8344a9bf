// Package workplace implements the search index port against the
// Workplace Search content source API: bulk document create and
// destroy, per-user permission management and content source
// provisioning.
package workplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/spsync/internal/core/domain"
	"github.com/custodia-labs/spsync/internal/core/ports/driven"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 60 * time.Second

// Client talks to one Workplace Search deployment.
type Client struct {
	baseURL    string
	sourceID   string
	httpClient *http.Client
	token      oauth2.TokenSource
}

var _ driven.SearchIndex = (*Client)(nil)

// NewClient builds a client from the search settings.
func NewClient(settings *domain.Settings) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(settings.Search.HostURL, "/"),
		sourceID:   settings.Search.SourceID,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		token:      oauth2.StaticTokenSource(&oauth2.Token{AccessToken: settings.Search.APIKey}),
	}
}

// IndexDocuments submits one batch via bulk_create and returns the
// per-document results.
func (c *Client) IndexDocuments(ctx context.Context, docs []domain.Document) ([]driven.DocumentResult, error) {
	payloads := make([]map[string]any, len(docs))
	for i, doc := range docs {
		payloads[i] = doc.Payload()
	}

	u := fmt.Sprintf("%s/api/ws/v1/sources/%s/documents/bulk_create", c.baseURL, c.sourceID)
	body, err := c.do(ctx, http.MethodPost, u, payloads)
	if err != nil {
		return nil, err
	}

	var results []struct {
		ID     string   `json:"id"`
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("decode bulk_create response: %w", err)
	}
	out := make([]driven.DocumentResult, len(results))
	for i, r := range results {
		out[i] = driven.DocumentResult{ID: r.ID, Errors: r.Errors}
	}
	return out, nil
}

// DeleteDocuments removes documents by id via bulk_destroy.
func (c *Client) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	u := fmt.Sprintf("%s/api/ws/v1/sources/%s/documents/bulk_destroy", c.baseURL, c.sourceID)
	_, err := c.do(ctx, http.MethodPost, u, ids)
	return err
}

// AddPermissions replaces the grant list of one user.
func (c *Client) AddPermissions(ctx context.Context, user string, permissions []string) error {
	u := fmt.Sprintf("%s/api/ws/v1/sources/%s/external_identities/%s/permissions", c.baseURL, c.sourceID, user)
	_, err := c.do(ctx, http.MethodPost, u, map[string]any{"permissions": permissions})
	return err
}

// ListPermissions returns all users with their grants.
func (c *Client) ListPermissions(ctx context.Context) (map[string][]string, error) {
	u := fmt.Sprintf("%s/api/ws/v1/sources/%s/permissions", c.baseURL, c.sourceID)
	body, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Results []struct {
			User        string   `json:"user"`
			Permissions []string `json:"permissions"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode permissions response: %w", err)
	}
	out := make(map[string][]string, len(page.Results))
	for _, r := range page.Results {
		out[r.User] = r.Permissions
	}
	return out, nil
}

// RemovePermissions clears all grants of one user.
func (c *Client) RemovePermissions(ctx context.Context, user string) error {
	u := fmt.Sprintf("%s/api/ws/v1/sources/%s/external_identities/%s/permissions", c.baseURL, c.sourceID, user)
	_, err := c.do(ctx, http.MethodDelete, u, map[string]any{"permissions": []string{}})
	return err
}

// CreateContentSource provisions a content source configured for the
// document shape this connector emits and returns its id.
func (c *Client) CreateContentSource(ctx context.Context, name string) (string, error) {
	u := c.baseURL + "/api/ws/v1/sources"
	payload := map[string]any{
		"name":          name,
		"is_searchable": true,
		"indexing":      map[string]any{"enabled": true},
		"schema":        contentSourceSchema(),
		"display":       contentSourceDisplay(),
	}
	body, err := c.do(ctx, http.MethodPost, u, payload)
	if err != nil {
		return "", err
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("decode source response: %w", err)
	}
	return created.ID, nil
}

func contentSourceSchema() map[string]string {
	return map[string]string{
		"title":        "text",
		"body":         "text",
		"url":          "text",
		"created_at":   "date",
		"last_updated": "date",
		"type":         "text",
	}
}

func contentSourceDisplay() map[string]any {
	return map[string]any{
		"title_field":   "title",
		"url_field":     "url",
		"detail_fields": []map[string]string{{"field_name": "body", "label": "Content"}},
		"color":         "#000000",
	}
}

// do issues one JSON request and returns the response body. Non-2xx
// statuses surface as errors; rejected credentials map to the domain
// sentinel so the engine can abort the run.
func (c *Client) do(ctx context.Context, method, u string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	tok, err := c.token.Token()
	if err != nil {
		return nil, fmt.Errorf("resolve token: %w", err)
	}
	tok.SetAuthHeader(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d for %s", domain.ErrAuthFailed, resp.StatusCode, u)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, u)
	default:
		return nil, fmt.Errorf("workplace: API error %d for %s: %s", resp.StatusCode, u, body)
	}
}
