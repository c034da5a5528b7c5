package mockups

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danvolkens/haven-hub-api/pkg/config"
)

// RenderRequest asks the provider to composite one artwork into one scene.
type RenderRequest struct {
	TemplateID  string
	SmartObject string
	ImageURL    string
	Width       int
	Height      int
}

// RenderResponse is the provider's result for a single render.
type RenderResponse struct {
	RenderID    string `json:"id"`
	ResultURL   string `json:"result_url"`
	CreditsUsed int    `json:"credits_used"`
}

// Client talks to the external mockup render provider.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// NewClient builds a provider client with the configured per-call timeout.
func NewClient(cfg config.MockupProviderConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpc:   &http.Client{Timeout: cfg.CallTimeout},
	}
}

type renderLayer struct {
	Name     string     `json:"name"`
	ImageURL string     `json:"image_url"`
	Fit      string     `json:"fit"`
	Size     renderSize `json:"size"`
}

type renderSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type renderOutput struct {
	Format  string `json:"format"`
	Quality int    `json:"quality"`
}

type renderBody struct {
	TemplateID string        `json:"template_id"`
	Layers     []renderLayer `json:"layers"`
	Output     renderOutput  `json:"output"`
}

// Render composites one asset into one scene and waits for the result.
func (c *Client) Render(ctx context.Context, req RenderRequest) (*RenderResponse, error) {
	body := renderBody{
		TemplateID: req.TemplateID,
		Layers: []renderLayer{{
			Name:     req.SmartObject,
			ImageURL: req.ImageURL,
			Fit:      "contain",
			Size:     renderSize{Width: req.Width, Height: req.Height},
		}},
		Output: renderOutput{Format: "png", Quality: 95},
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal render payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/renders", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("render provider error (%d): %s", resp.StatusCode, string(detail))
	}

	var out RenderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if out.ResultURL == "" {
		return nil, fmt.Errorf("render provider returned no result url")
	}
	return &out, nil
}
