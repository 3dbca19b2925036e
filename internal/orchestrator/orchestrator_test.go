package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/drx3/drx-backend/pkg/llm"
)

// passthroughComposer returns history plus the user message unchanged.
type passthroughComposer struct{}

func (passthroughComposer) Compose(settings llm.Settings, history []llm.ChatMessage, message string) []llm.ChatMessage {
	return append(append([]llm.ChatMessage{}, history...), llm.ChatMessage{Role: "user", Content: message})
}

// captureRecorder collects usage records on a channel so tests can wait
// for the detached goroutine.
type captureRecorder struct {
	records chan UsageRecord
}

func newCaptureRecorder() *captureRecorder {
	return &captureRecorder{records: make(chan UsageRecord, 10)}
}

func (r *captureRecorder) Record(ctx context.Context, rec UsageRecord) error {
	r.records <- rec
	return nil
}

func (r *captureRecorder) wait(t *testing.T) UsageRecord {
	t.Helper()
	select {
	case rec := <-r.records:
		return rec
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for usage record")
		return UsageRecord{}
	}
}

func failingClient(msg string) *llm.MockClient {
	client := llm.NewMockClient()
	client.CompleteFunc = func(context.Context, []llm.ChatMessage, llm.Settings) (*llm.Result, error) {
		return nil, &llm.UpstreamError{StatusCode: 500, Body: msg}
	}
	return client
}

func succeedingClient(content string, tokens int) *llm.MockClient {
	client := llm.NewMockClient()
	client.CompleteFunc = func(context.Context, []llm.ChatMessage, llm.Settings) (*llm.Result, error) {
		return &llm.Result{Content: content, TokensUsed: tokens}, nil
	}
	return client
}

func newTestOrchestrator(adapters map[llm.Provider]llm.Client, creds CredentialStore, recorder UsageRecorder) *Orchestrator {
	return New(adapters, creds, passthroughComposer{}, recorder, time.Second, time.Second)
}

func TestChat_EmptyMessage(t *testing.T) {
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{}, allCreds(), nil)

	for _, message := range []string{"", "   ", "\n\t"} {
		resp, err := orch.Chat(context.Background(), ChatRequest{Message: message})
		if !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Chat(%q) error = %v, want ErrEmptyMessage", message, err)
		}
		if resp != nil {
			t.Errorf("Chat(%q) returned a response for an empty message", message)
		}
	}
}

func TestChat_UnknownProvider(t *testing.T) {
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{}, allCreds(), nil)

	resp, err := orch.Chat(context.Background(), ChatRequest{
		Message:  "hello",
		Settings: llm.Settings{Provider: "openai"},
	})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("error = %v, want ErrUnknownProvider", err)
	}
	if resp != nil {
		t.Error("Expected nil response for unknown provider")
	}
}

func TestChat_NoProviderAvailable(t *testing.T) {
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{}, fakeCreds{}, nil)

	resp, err := orch.Chat(context.Background(), ChatRequest{Message: "hello"})
	if !errors.Is(err, ErrNoProviderAvailable) {
		t.Fatalf("error = %v, want ErrNoProviderAvailable", err)
	}
	if resp == nil {
		t.Fatal("Expected a degraded response alongside the error")
	}
	if resp.Content != exhaustedContent {
		t.Errorf("Content = %q, want apology payload", resp.Content)
	}
	if resp.Model != "error" || resp.Tokens != 0 || !resp.FallbackUsed {
		t.Errorf("Degraded envelope wrong: %+v", resp)
	}
}

func TestChat_Success(t *testing.T) {
	groq := succeedingClient("أهلاً وسهلاً!", 42)
	recorder := newCaptureRecorder()
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{llm.ProviderGroq: groq}, allCreds(), recorder)

	resp, err := orch.Chat(context.Background(), ChatRequest{Message: "مرحبا"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.Content != "أهلاً وسهلاً!" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Model != "Groq (Qwen-QwQ-32B)" {
		t.Errorf("Model = %q, want plain label without fallback suffix", resp.Model)
	}
	if resp.Tokens != 42 {
		t.Errorf("Tokens = %d, want 42", resp.Tokens)
	}
	if resp.FallbackUsed {
		t.Error("FallbackUsed = true on a primary success")
	}
	if resp.Provider != "groq" {
		t.Errorf("Provider = %q, want groq", resp.Provider)
	}
	if resp.ProcessingTime < 0 {
		t.Errorf("ProcessingTime = %d", resp.ProcessingTime)
	}

	rec := recorder.wait(t)
	if !rec.Success || rec.Provider != "groq" || rec.Tokens != 42 {
		t.Errorf("Usage record wrong: %+v", rec)
	}
}

func TestChat_EmptyContentAndTokenEstimate(t *testing.T) {
	groq := succeedingClient("", 0)
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{llm.ProviderGroq: groq}, allCreds(), nil)

	resp, err := orch.Chat(context.Background(), ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.Content != noReplyContent {
		t.Errorf("Content = %q, want placeholder", resp.Content)
	}
	wantTokens := (len(noReplyContent) + 3) / 4
	if resp.Tokens != wantTokens {
		t.Errorf("Tokens = %d, want estimate %d", resp.Tokens, wantTokens)
	}
}

func TestChat_TokenEstimateRoundsUp(t *testing.T) {
	// 5 characters estimate to 2 tokens, not 1.
	groq := succeedingClient("hello", 0)
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{llm.ProviderGroq: groq}, allCreds(), nil)

	resp, err := orch.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Tokens != 2 {
		t.Errorf("Tokens = %d, want 2", resp.Tokens)
	}
}

func TestChat_FallbackToSecondProvider(t *testing.T) {
	groq := failingClient("groq down")
	together := succeedingClient("fallback reply", 7)
	recorder := newCaptureRecorder()
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{
		llm.ProviderGroq:     groq,
		llm.ProviderTogether: together,
	}, allCreds(), recorder)

	resp, err := orch.Chat(context.Background(), ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if resp.Model != "Together AI (DeepSeek-R1) - Fallback" {
		t.Errorf("Model = %q, want fallback-suffixed label", resp.Model)
	}
	if !resp.FallbackUsed {
		t.Error("FallbackUsed = false after a fallback answered")
	}
	if resp.Provider != "groq" {
		t.Errorf("Provider = %q, want originally selected groq", resp.Provider)
	}
	if groq.CompleteCallCount() != 1 || together.CompleteCallCount() != 1 {
		t.Errorf("Call counts: groq=%d together=%d", groq.CompleteCallCount(), together.CompleteCallCount())
	}

	rec := recorder.wait(t)
	if !rec.FallbackUsed || !rec.Success {
		t.Errorf("Usage record wrong: %+v", rec)
	}
}

func TestChat_FallbackOrderSkipsPrimary(t *testing.T) {
	var mu sync.Mutex
	var order []llm.Provider
	mkClient := func(p llm.Provider) *llm.MockClient {
		client := llm.NewMockClient()
		client.CompleteFunc = func(context.Context, []llm.ChatMessage, llm.Settings) (*llm.Result, error) {
			mu.Lock()
			order = append(order, p)
			mu.Unlock()
			return nil, &llm.UpstreamError{Provider: p, StatusCode: 503, Body: "down"}
		}
		return client
	}

	orch := newTestOrchestrator(map[llm.Provider]llm.Client{
		llm.ProviderGroq:     mkClient(llm.ProviderGroq),
		llm.ProviderTogether: mkClient(llm.ProviderTogether),
		llm.ProviderGemini:   mkClient(llm.ProviderGemini),
	}, allCreds(), nil)

	resp, err := orch.Chat(context.Background(), ChatRequest{
		Message:  "hello",
		Settings: llm.Settings{Provider: "gemini"},
	})

	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("error = %v, want ErrAllProvidersExhausted", err)
	}
	if resp == nil || resp.Content != exhaustedContent {
		t.Fatalf("Expected degraded response, got %+v", resp)
	}
	if resp.Provider != "gemini" {
		t.Errorf("Provider = %q, want originally selected gemini", resp.Provider)
	}

	want := []llm.Provider{llm.ProviderGemini, llm.ProviderGroq, llm.ProviderTogether}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("Attempted %d providers, want %d: %v", len(order), len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("attempt[%d] = %v, want %v", i, order[i], want[i])
		}
	}
}

func TestChat_ExhaustedRecordsErrorUsage(t *testing.T) {
	recorder := newCaptureRecorder()
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{
		llm.ProviderGroq: failingClient("down"),
	}, fakeCreds{llm.ProviderGroq: true}, recorder)

	_, err := orch.Chat(context.Background(), ChatRequest{Message: "hello"})
	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("error = %v, want ErrAllProvidersExhausted", err)
	}

	rec := recorder.wait(t)
	if rec.Success {
		t.Error("Usage record marked success after total failure")
	}
	if rec.Model != "error" || !rec.FallbackUsed {
		t.Errorf("Usage record wrong: %+v", rec)
	}
}

func TestChat_SkipsProvidersWithoutCredential(t *testing.T) {
	together := succeedingClient("should not run", 1)
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{
		llm.ProviderGroq:     failingClient("down"),
		llm.ProviderTogether: together,
	}, fakeCreds{llm.ProviderGroq: true}, nil)

	_, err := orch.Chat(context.Background(), ChatRequest{Message: "hello"})
	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("error = %v, want ErrAllProvidersExhausted", err)
	}
	if together.CompleteCallCount() != 0 {
		t.Error("Fallback called a provider without credentials")
	}
}

func TestChatStream_Success(t *testing.T) {
	groq := llm.NewMockClient()
	orch := newTestOrchestrator(map[llm.Provider]llm.Client{llm.ProviderGroq: groq}, allCreds(), nil)

	chunks, provider, usedFallback, err := orch.ChatStream(context.Background(), ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if provider != llm.ProviderGroq || usedFallback {
		t.Errorf("provider = %v, fallback = %v", provider, usedFallback)
	}

	var full string
	for chunk := range chunks {
		full += chunk.Content
	}
	if full != "This is a mock response." {
		t.Errorf("Streamed content = %q", full)
	}
}

func TestChatStream_InitiationFallback(t *testing.T) {
	groq := llm.NewMockClient()
	groq.StreamFunc = func(context.Context, []llm.ChatMessage, llm.Settings) (<-chan llm.Chunk, error) {
		return nil, &llm.UpstreamError{Provider: llm.ProviderGroq, StatusCode: 500, Body: "down"}
	}
	together := llm.NewMockClient()

	orch := newTestOrchestrator(map[llm.Provider]llm.Client{
		llm.ProviderGroq:     groq,
		llm.ProviderTogether: together,
	}, allCreds(), nil)

	chunks, provider, usedFallback, err := orch.ChatStream(context.Background(), ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("ChatStream() error = %v", err)
	}
	if provider != llm.ProviderTogether {
		t.Errorf("provider = %v, want together", provider)
	}
	if !usedFallback {
		t.Error("usedFallback = false after initiation fallback")
	}
	for range chunks {
	}
}

func TestChatStream_Exhausted(t *testing.T) {
	groq := llm.NewMockClient()
	groq.StreamFunc = func(context.Context, []llm.ChatMessage, llm.Settings) (<-chan llm.Chunk, error) {
		return nil, errors.New("down")
	}

	orch := newTestOrchestrator(map[llm.Provider]llm.Client{
		llm.ProviderGroq: groq,
	}, fakeCreds{llm.ProviderGroq: true}, nil)

	_, _, _, err := orch.ChatStream(context.Background(), ChatRequest{Message: "hello"})
	if !errors.Is(err, ErrAllProvidersExhausted) {
		t.Fatalf("error = %v, want ErrAllProvidersExhausted", err)
	}
}
