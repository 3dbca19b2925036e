package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/drx3/drx-backend/pkg/llm"
)

// noCandidateText is returned when Gemini produces no candidate text,
// so callers always get natural-language content.
const noCandidateText = "لم يتم إنتاج رد مناسب."

// thinkingBudget is the fixed token budget sent with thinkingConfig
// when step-by-step reasoning is requested.
const thinkingBudget = 10467

// HTTPClient implements the llm.Client interface for Gemini using the
// REST API. Gemini speaks a different wire protocol than the
// OpenAI-compatible providers; all remapping stays inside this package.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	timeout    time.Duration
}

// Ensure HTTPClient implements llm.Client
var _ llm.Client = (*HTTPClient)(nil)

// Config holds configuration for the Gemini client
type Config struct {
	APIKey  string
	BaseURL string        // Default: https://generativelanguage.googleapis.com/v1beta/models
	Model   string        // Default: gemini-2.5-pro
	Timeout time.Duration // Default: 30s
}

// NewHTTPClient creates a new Gemini HTTP client
func NewHTTPClient(config Config) *HTTPClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if config.Model == "" {
		config.Model = "gemini-2.5-pro"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &HTTPClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		timeout: config.Timeout,
	}
}

// Internal Gemini types
type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	Tools            []geminiTool     `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64         `json:"temperature"`
	MaxOutputTokens int             `json:"maxOutputTokens"`
	TopP            float64         `json:"topP"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type geminiTool struct {
	CodeExecution struct{} `json:"codeExecution"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// toGeminiRequest remaps canonical messages into the Gemini wire shape.
// Assistant turns become "model"; system and user both map to "user"
// since the contents array only accepts those two roles.
func (c *HTTPClient) toGeminiRequest(messages []llm.ChatMessage, settings llm.Settings) geminiRequest {
	contents := make([]geminiContent, len(messages))
	for i, msg := range messages {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		contents[i] = geminiContent{
			Role: role,
			Parts: []geminiPart{
				{Text: msg.Content},
			},
		}
	}

	genCfg := generationConfig{
		Temperature:     settings.Temperature,
		MaxOutputTokens: settings.MaxTokens,
		TopP:            settings.TopP,
	}
	if settings.EnableThinking {
		genCfg.ThinkingConfig = &thinkingConfig{ThinkingBudget: thinkingBudget}
	}

	req := geminiRequest{
		Contents:         contents,
		GenerationConfig: genCfg,
	}
	if settings.EnableSearch {
		req.Tools = []geminiTool{{}}
	}
	return req
}

func (c *HTTPClient) resolveModel(settings llm.Settings) string {
	if settings.Model == "" || settings.Model == llm.AutoModel {
		return c.model
	}
	return settings.Model
}

func (c *HTTPClient) post(ctx context.Context, url string, gemReq geminiRequest) (*http.Response, error) {
	body, err := json.Marshal(gemReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &llm.UpstreamError{
			Provider:   llm.ProviderGemini,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return resp, nil
}

// Complete implements llm.Client.Complete
func (c *HTTPClient) Complete(ctx context.Context, messages []llm.ChatMessage, settings llm.Settings) (*llm.Result, error) {
	url := fmt.Sprintf("%s/%s:generateContent?key=%s", c.baseURL, c.resolveModel(settings), c.apiKey)

	resp, err := c.post(ctx, url, c.toGeminiRequest(messages, settings))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var gResp geminiResponse
	if err := json.Unmarshal(raw, &gResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	content := ""
	if len(gResp.Candidates) > 0 && len(gResp.Candidates[0].Content.Parts) > 0 {
		content = gResp.Candidates[0].Content.Parts[0].Text
	}
	if content == "" {
		content = noCandidateText
	}

	return &llm.Result{
		Content:    content,
		TokensUsed: gResp.UsageMetadata.TotalTokenCount,
		Raw:        raw,
	}, nil
}

// StreamComplete implements llm.Client.StreamComplete
func (c *HTTPClient) StreamComplete(ctx context.Context, messages []llm.ChatMessage, settings llm.Settings) (<-chan llm.Chunk, error) {
	url := fmt.Sprintf("%s/%s:streamGenerateContent?key=%s&alt=sse", c.baseURL, c.resolveModel(settings), c.apiKey)

	resp, err := c.post(ctx, url, c.toGeminiRequest(messages, settings))
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.Chunk, 32)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				break
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var gResp geminiResponse
			if err := json.Unmarshal([]byte(data), &gResp); err != nil {
				continue
			}
			if len(gResp.Candidates) == 0 || len(gResp.Candidates[0].Content.Parts) == 0 {
				continue
			}

			text := gResp.Candidates[0].Content.Parts[0].Text
			if text == "" {
				continue
			}

			select {
			case ch <- llm.Chunk{Content: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
