// File: internal/perception/omniparser.go
package perception

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/sightline-ai/sightline/api/schemas"
)

// OmniParserClient talks to an OmniParser-style screen parsing server:
// POST {base}/parse/ with a base64 PNG, reply {"parsed_content_list": [...]}.
type OmniParserClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ schemas.ScreenParser = (*OmniParserClient)(nil)

type parseRequest struct {
	Base64Image string `json:"base64_image"`
}

type parseResponse struct {
	ParsedContentList []schemas.RawElement `json:"parsed_content_list"`
	Error             string               `json:"error,omitempty"`
}

// NewOmniParserClient builds a client for the given server base URL.
func NewOmniParserClient(baseURL string, timeout time.Duration, logger *zap.Logger) *OmniParserClient {
	return &OmniParserClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("omniparser"),
	}
}

// Probe checks server responsiveness. Useful at startup to fail fast before
// entering the loop.
func (c *OmniParserClient) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/probe/", nil)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: probe failed: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: probe returned status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// Parse sends the screenshot to the parsing server and returns the raw
// detections. Transport failures and non-2xx replies are reported as
// ErrUnavailable; replies that cannot be decoded, or that carry a top-level
// error field, as ErrMalformed. An empty detection list is a valid result.
func (c *OmniParserClient) Parse(ctx context.Context, screenshotPNG []byte) ([]schemas.RawElement, error) {
	payload, err := json.Marshal(parseRequest{
		Base64Image: base64.StdEncoding.EncodeToString(screenshotPNG),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/parse/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create parse request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: server returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed parseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: undecodable reply: %v", ErrMalformed, err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("%w: parser error: %s", ErrMalformed, parsed.Error)
	}

	c.logger.Debug("Screenshot parsed",
		zap.Int("detections", len(parsed.ParsedContentList)),
		zap.Duration("took", time.Since(start)))
	return parsed.ParsedContentList, nil
}
