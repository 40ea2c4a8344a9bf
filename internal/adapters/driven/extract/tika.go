// Package extract implements text extraction through an Apache Tika
// server.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/spsync/internal/core/ports/driven"
)

// DefaultTimeout bounds one extraction call. Large binaries can take a
// while to parse server side.
const DefaultTimeout = 2 * time.Minute

// TikaExtractor sends file content to a Tika server and returns the
// extracted plain text.
type TikaExtractor struct {
	baseURL    string
	httpClient *http.Client
}

var _ driven.TextExtractor = (*TikaExtractor)(nil)

// NewTikaExtractor creates an extractor against the given server URL.
func NewTikaExtractor(hostURL string) *TikaExtractor {
	return &TikaExtractor{
		baseURL:    strings.TrimSuffix(hostURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Extract submits content and returns the plain text Tika produced.
func (t *TikaExtractor) Extract(ctx context.Context, content []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+"/tika", bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract content: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read extraction response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("tika: status %d: %s", resp.StatusCode, body)
	}
	return strings.TrimSpace(string(body)), nil
}
