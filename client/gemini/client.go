package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taleweaver/logger"
)

// DefaultURL is the hosted generative-language API base URL
const DefaultURL = "https://generativelanguage.googleapis.com"

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-1.5-flash"

// ErrNoContent is returned when a response carries no candidate text
var ErrNoContent = errors.New("no content received from gemini")

// GenerateContentRequest matches the generateContent request body
type GenerateContentRequest struct {
	Contents         []Content         `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is a single message made of text parts
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text,omitempty"`
}

// GenerationConfig holds the sampling controls
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateContentResponse is the subset of the response the client reads
type GenerateContentResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason,omitempty"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

// Text returns the first part of the first candidate, or "" if absent
func (r *GenerateContentResponse) Text() string {
	if r == nil || len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// Client is a reusable generateContent API client
type Client struct {
	HTTPClient *http.Client
	URL        string
	APIKey     string
	Model      string
	Config     GenerationConfig
}

// NewClient creates a client with the default generation settings.
// Empty url or model fall back to DefaultURL and DefaultModel.
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
		URL:        strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		Config: GenerationConfig{
			Temperature:     0.8,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	}
}

// Generate sends prompt as a single user message and returns the generated text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	config := c.Config
	resp, err := c.GenerateContent(ctx, &GenerateContentRequest{
		Contents:         []Content{{Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &config,
	})
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

// GenerateContent sends a raw generateContent request
func (c *Client) GenerateContent(ctx context.Context, req *GenerateContentRequest) (*GenerateContentResponse, error) {
	defer logger.Trace("gemini.GenerateContent")()

	body, err := c.doRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	var resp GenerateContentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.UsageMetadata != nil {
		logger.Debug("gemini: prompt=%d candidates=%d total=%d tokens",
			resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount, resp.UsageMetadata.TotalTokenCount)
	}
	return &resp, nil
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.URL, url.PathEscape(c.Model)))
	if err != nil {
		return "", fmt.Errorf("failed to parse endpoint: %w", err)
	}
	return u.String(), nil
}

// doRequest sends an HTTP request and returns the response body
func (c *Client) doRequest(ctx context.Context, req *GenerateContentRequest) ([]byte, error) {
	// Marshal the request without HTML escaping
	var reqBodyBuf bytes.Buffer
	encoder := json.NewEncoder(&reqBodyBuf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint, err := c.endpoint()
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &reqBodyBuf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		httpReq.Header.Set("x-goog-api-key", c.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
