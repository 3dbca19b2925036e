package groq

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

// HTTPClient implements the llm.Client interface for the Groq
// chat-completions API.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	timeout    time.Duration
}

// Ensure HTTPClient implements llm.Client
var _ llm.Client = (*HTTPClient)(nil)

// Config holds configuration for the Groq client
type Config struct {
	APIKey  string
	BaseURL string        // Default: https://api.groq.com/openai/v1
	Model   string        // Default: qwen-qwq-32b
	Timeout time.Duration // Default: 30s
}

// NewHTTPClient creates a new Groq HTTP client
func NewHTTPClient(config Config) *HTTPClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.groq.com/openai/v1"
	}
	if config.Model == "" {
		config.Model = "qwen-qwq-32b"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	// Optimized transport for high throughput and connection reuse
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

// chatRequest is the Groq wire format. Groq names the output cap
// max_completion_tokens, unlike the usual max_tokens.
type chatRequest struct {
	Model               string            `json:"model"`
	Messages            []llm.ChatMessage `json:"messages"`
	Temperature         float64           `json:"temperature"`
	MaxCompletionTokens int               `json:"max_completion_tokens"`
	TopP                float64           `json:"top_p"`
	Stream              bool              `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (c *HTTPClient) buildRequest(messages []llm.ChatMessage, settings llm.Settings, stream bool) chatRequest {
	model := settings.Model
	if model == "" || model == llm.AutoModel {
		model = c.model
	}
	return chatRequest{
		Model:               model,
		Messages:            messages,
		Temperature:         settings.Temperature,
		MaxCompletionTokens: settings.MaxTokens,
		TopP:                settings.TopP,
		Stream:              stream,
	}
}

func (c *HTTPClient) do(ctx context.Context, req chatRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &llm.UpstreamError{
			Provider:   llm.ProviderGroq,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	return resp, nil
}

// Complete implements llm.Client.Complete
func (c *HTTPClient) Complete(ctx context.Context, messages []llm.ChatMessage, settings llm.Settings) (*llm.Result, error) {
	resp, err := c.do(ctx, c.buildRequest(messages, settings, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	result := &llm.Result{
		TokensUsed: chatResp.Usage.TotalTokens,
		Raw:        raw,
	}
	if len(chatResp.Choices) > 0 {
		result.Content = chatResp.Choices[0].Message.Content
	}
	return result, nil
}

// StreamComplete implements llm.Client.StreamComplete
func (c *HTTPClient) StreamComplete(ctx context.Context, messages []llm.ChatMessage, settings llm.Settings) (<-chan llm.Chunk, error) {
	resp, err := c.do(ctx, c.buildRequest(messages, settings, true))
	if err != nil {
		return nil, err
	}

	ch := make(chan llm.Chunk, 32)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				break
			}

			var chunk chatChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}

			select {
			case ch <- llm.Chunk{Content: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
