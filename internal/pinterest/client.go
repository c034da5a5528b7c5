package pinterest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danvolkens/haven-hub-api/pkg/config"
)

// CreatePinRequest is the publish payload for the external pins endpoint.
type CreatePinRequest struct {
	BoardID     string
	ImageURL    string
	Title       string
	Description string
	Link        string
	AltText     string
}

// CreatePinResponse carries the external pin identifier.
type CreatePinResponse struct {
	ID string `json:"id"`
}

// Client is a thin wrapper over the Pinterest v5 REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient builds a client with the configured per-call timeout.
func NewClient(cfg config.PinterestConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpc:   &http.Client{Timeout: cfg.CallTimeout},
	}
}

type mediaSource struct {
	SourceType string `json:"source_type"`
	URL        string `json:"url"`
}

type createPinBody struct {
	BoardID     string      `json:"board_id"`
	MediaSource mediaSource `json:"media_source"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Link        string      `json:"link,omitempty"`
	AltText     string      `json:"alt_text,omitempty"`
}

// CreatePin publishes a pin. Any non-2xx response is a failure carrying the
// provider's response body for the caller to persist.
func (c *Client) CreatePin(ctx context.Context, accessToken string, req CreatePinRequest) (*CreatePinResponse, error) {
	body := createPinBody{
		BoardID: req.BoardID,
		MediaSource: mediaSource{
			SourceType: "image_url",
			URL:        req.ImageURL,
		},
		Title:       req.Title,
		Description: req.Description,
		Link:        req.Link,
		AltText:     req.AltText,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal pin payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pins", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build pin request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("pinterest api call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("pinterest api error (%d): %s", resp.StatusCode, string(detail))
	}

	var out CreatePinResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode pin response: %w", err)
	}
	if out.ID == "" {
		return nil, fmt.Errorf("pinterest api returned no pin id")
	}
	return &out, nil
}
