package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/drx3/drx-backend/internal/cache"
	"github.com/drx3/drx-backend/internal/orchestrator"
	"github.com/drx3/drx-backend/pkg/llm"
)

type fakeChatService struct {
	resp      *orchestrator.ChatResponse
	err       error
	chunks    []string
	streamErr error
	calls     int
}

func (f *fakeChatService) Chat(ctx context.Context, req orchestrator.ChatRequest) (*orchestrator.ChatResponse, error) {
	f.calls++
	return f.resp, f.err
}

func (f *fakeChatService) ChatStream(ctx context.Context, req orchestrator.ChatRequest) (<-chan llm.Chunk, llm.Provider, bool, error) {
	f.calls++
	if f.streamErr != nil {
		return nil, llm.ProviderGroq, false, f.streamErr
	}
	ch := make(chan llm.Chunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- llm.Chunk{Content: c}
	}
	close(ch)
	return ch, llm.ProviderGroq, false, nil
}

func newChatRouter(h *ChatHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/ai/chat", h.HandleChat)
	router.POST("/api/ai/chat/stream", h.HandleChatStream)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestChatHandler_Success(t *testing.T) {
	service := &fakeChatService{
		resp: &orchestrator.ChatResponse{
			Content:        "أهلاً وسهلاً!",
			Model:          "Groq (Qwen-QwQ-32B)",
			Tokens:         42,
			ProcessingTime: 850,
			Provider:       "groq",
		},
	}
	router := newChatRouter(NewChatHandler(service, nil, 0))

	w := postJSON(t, router, "/api/ai/chat", `{"message":"مرحبا"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp orchestrator.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp.Content != "أهلاً وسهلاً!" || resp.Tokens != 42 {
		t.Errorf("response = %+v", resp)
	}
}

func TestChatHandler_EmptyMessage(t *testing.T) {
	service := &fakeChatService{err: orchestrator.ErrEmptyMessage}
	router := newChatRouter(NewChatHandler(service, nil, 0))

	w := postJSON(t, router, "/api/ai/chat", `{"message":"  "}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Message is required") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestChatHandler_InvalidJSON(t *testing.T) {
	service := &fakeChatService{}
	router := newChatRouter(NewChatHandler(service, nil, 0))

	w := postJSON(t, router, "/api/ai/chat", `{not json`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if service.calls != 0 {
		t.Error("Service called for malformed request body")
	}
}

func TestChatHandler_TotalFailureServesDegradedPayload(t *testing.T) {
	service := &fakeChatService{
		resp: &orchestrator.ChatResponse{
			Content:      "عذراً، أواجه مشكلة تقنية مؤقتة في جميع الخدمات. يرجى المحاولة مرة أخرى.",
			Model:        "error",
			FallbackUsed: true,
			Provider:     "groq",
		},
		err: orchestrator.ErrAllProvidersExhausted,
	}
	router := newChatRouter(NewChatHandler(service, nil, 0))

	w := postJSON(t, router, "/api/ai/chat", `{"message":"hello"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var resp orchestrator.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Invalid JSON response: %v", err)
	}
	if resp.Model != "error" || !resp.FallbackUsed {
		t.Errorf("degraded payload = %+v", resp)
	}
}

func TestChatHandler_CacheRoundTrip(t *testing.T) {
	service := &fakeChatService{
		resp: &orchestrator.ChatResponse{
			Content: "cached answer",
			Model:   "Groq (Qwen-QwQ-32B)",
			Tokens:  10,
		},
	}
	memCache := cache.NewMemoryCache(time.Minute)
	defer memCache.Close()
	router := newChatRouter(NewChatHandler(service, memCache, time.Minute))

	body := `{"message":"hello"}`

	w := postJSON(t, router, "/api/ai/chat", body)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d", w.Code)
	}
	if service.calls != 1 {
		t.Fatalf("service calls = %d, want 1", service.calls)
	}

	w = postJSON(t, router, "/api/ai/chat", body)
	if w.Code != http.StatusOK {
		t.Fatalf("second request status = %d", w.Code)
	}
	if service.calls != 1 {
		t.Errorf("service calls = %d after cache hit, want 1", service.calls)
	}
	if !strings.Contains(w.Body.String(), "cached answer") {
		t.Errorf("cached body = %s", w.Body.String())
	}
}

func TestChatHandler_FallbackResponsesNotCached(t *testing.T) {
	service := &fakeChatService{
		resp: &orchestrator.ChatResponse{
			Content:      "fallback answer",
			Model:        "Together AI (DeepSeek-R1) - Fallback",
			FallbackUsed: true,
		},
	}
	memCache := cache.NewMemoryCache(time.Minute)
	defer memCache.Close()
	router := newChatRouter(NewChatHandler(service, memCache, time.Minute))

	body := `{"message":"hello"}`
	postJSON(t, router, "/api/ai/chat", body)
	postJSON(t, router, "/api/ai/chat", body)

	if service.calls != 2 {
		t.Errorf("service calls = %d, want 2 (fallback responses must not be cached)", service.calls)
	}
}

func TestChatHandler_Stream(t *testing.T) {
	service := &fakeChatService{chunks: []string{"Hello", " world"}}
	router := newChatRouter(NewChatHandler(service, nil, 0))

	w := postJSON(t, router, "/api/ai/chat/stream", `{"message":"hello"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, `"content":"Hello"`) {
		t.Errorf("missing first chunk: %s", body)
	}
	if !strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]") {
		t.Errorf("stream not terminated with [DONE]: %s", body)
	}
}

func TestChatHandler_StreamExhausted(t *testing.T) {
	service := &fakeChatService{streamErr: orchestrator.ErrAllProvidersExhausted}
	router := newChatRouter(NewChatHandler(service, nil, 0))

	w := postJSON(t, router, "/api/ai/chat/stream", `{"message":"hello"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
