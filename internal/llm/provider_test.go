package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/studyloop/internal/errs"
)

func TestMockProvider(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10}})
	mock.AddResponse(MockResponse{Err: errors.New("boom")})

	resp, err := mock.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "first"}}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"a":1}` || resp.Usage.InputTokens != 10 || resp.Model != "mock" {
		t.Errorf("unexpected response %+v", resp)
	}

	if _, err := mock.Generate(context.Background(), Request{}); err == nil || err.Error() != "boom" {
		t.Errorf("expected queued error, got %v", err)
	}

	_, err = mock.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	if !errors.As(err, &unavail) {
		t.Errorf("exhausted mock should be unavailable, got %v", err)
	}

	if mock.CallCount() != 3 || mock.Calls[0].Messages[0].Content != "first" {
		t.Errorf("calls not recorded: %+v", mock.Calls)
	}
}

type memorySink struct {
	mu     sync.Mutex
	events []RequestEvent
	err    error
}

func (s *memorySink) AppendLLMRequest(_ context.Context, ev RequestEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func TestWithLogging_RecordsEvents(t *testing.T) {
	sink := &memorySink{}
	core, logs := observer.New(zap.DebugLevel)
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"items":[]}`), Usage: Usage{InputTokens: 12, OutputTokens: 3}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, "openai", sink, zap.New(core))

	ctx := WithPurpose(context.Background(), "flashcard-gen")
	req := Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "Generate 2 flashcards."}},
		Schema:   testSchema(),
	}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("expected error to pass through")
	}

	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	ok, failed := sink.events[0], sink.events[1]
	if !ok.Success || ok.Provider != "openai" || ok.Purpose != "flashcard-gen" || ok.InputTokens != 12 {
		t.Errorf("unexpected success event %+v", ok)
	}
	if !strings.Contains(ok.RequestBody, "[user]\nGenerate 2 flashcards.") || !strings.Contains(ok.RequestBody, "[schema: test-object]") {
		t.Errorf("request body not rendered: %q", ok.RequestBody)
	}
	if failed.Success || !strings.Contains(failed.ErrorMessage, "down") {
		t.Errorf("unexpected failure event %+v", failed)
	}
	if logs.FilterMessage("llm request failed").Len() != 1 {
		t.Errorf("expected one warning log, got %v", logs.All())
	}
}

func TestWithLogging_SinkFailureIgnored(t *testing.T) {
	sink := &memorySink{err: errors.New("db locked")}
	p := WithLogging(NewMockProvider(okReply), "mock", sink, nil)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("sink failure must not fail the call: %v", err)
	}
}

func TestPurposeFrom(t *testing.T) {
	if got := PurposeFrom(context.Background()); got != "unknown" {
		t.Errorf("got %q", got)
	}
	if got := PurposeFrom(WithPurpose(context.Background(), "question-gen")); got != "question-gen" {
		t.Errorf("got %q", got)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Enabled() {
		t.Error("default config should have generation disabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}

	cfg.Provider = "anthropic"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "llm.anthropic.api_key") {
		t.Errorf("expected missing key error, got %v", err)
	}
	cfg.Anthropic.APIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	cfg.Provider = "llama"
	if err := cfg.Validate(); err == nil {
		t.Error("expected unknown provider error")
	}
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.Provider = "mock"
	p, err := NewProvider(ctx, cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Errorf("expected mock provider, got %q", p.ModelID())
	}

	cfg.Provider = "openrouter"
	cfg.OpenRouter = ProviderConfig{APIKey: "k", Model: "openai/gpt-4o-mini"}
	p, err = NewProvider(ctx, cfg, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "openai/gpt-4o-mini" {
		t.Errorf("unexpected model %q", p.ModelID())
	}
	if _, ok := p.(*timeoutProvider); !ok {
		t.Errorf("expected the call timeout to wrap the chain, got %T", p)
	}

	cfg.Provider = ""
	if _, err := NewProvider(ctx, cfg, nil, nil); err == nil {
		t.Error("expected error when no provider is selected")
	}
}

type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingProvider) ModelID() string { return "blocking" }

func TestTimeoutProvider(t *testing.T) {
	p := &timeoutProvider{inner: blockingProvider{}, timeout: 10 * time.Millisecond}
	_, err := p.Generate(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLookupCost(t *testing.T) {
	c := LookupCost("gpt-4o-mini")
	if c == nil {
		t.Fatal("expected pricing for gpt-4o-mini")
	}
	if got := c.Cost(1_000_000, 1_000_000); got != 0.75 {
		t.Errorf("cost = %v, want 0.75", got)
	}
	if LookupCost("no-such-model") != nil {
		t.Error("unknown model should have no pricing")
	}
}

func TestProviderErrors_CarryUpstreamKind(t *testing.T) {
	tests := []struct {
		err       error
		temporary bool
	}{
		{&ErrRateLimit{Err: errors.New("429")}, true},
		{&ErrInvalidResponse{Err: errors.New("bad")}, true},
		{&ErrProviderUnavailable{}, true},
		{&ErrMaxTokensExceeded{}, false},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("generate: %w", tt.err)
		if !errors.Is(wrapped, errs.ErrUpstreamUnavailable) {
			t.Errorf("%T should match ErrUpstreamUnavailable", tt.err)
		}
		if errors.Is(wrapped, errs.ErrValidation) {
			t.Errorf("%T should not match ErrValidation", tt.err)
		}
		var tmp temporary
		if !errors.As(wrapped, &tmp) || tmp.Temporary() != tt.temporary {
			t.Errorf("%T temporary = %v, want %v", tt.err, !tt.temporary, tt.temporary)
		}
	}
}
