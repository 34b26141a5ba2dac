package completion

import (
	"context"
	"errors"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"followup-voicebot/agent/contract"
	sessionx "followup-voicebot/agent/session"
)

type fakeChatModel struct {
	errs     []error
	reply    *schema.Message
	calls    int
	received [][]*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, messages []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	f.calls++
	f.received = append(f.received, messages)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.reply != nil {
		return f.reply, nil
	}
	return schema.AssistantMessage("ok", nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in tests")
}

func newTestClient(t *testing.T, m einomodel.BaseChatModel) *Client {
	t.Helper()
	client, err := NewClient(
		map[contract.Role]einomodel.BaseChatModel{contract.RoleAdherence: m},
		sessionx.NewRegistry(),
		Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxJitter: 1, AttemptTimeout: time.Second, RequestsPerSecond: 1000},
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	client.sleep = func(context.Context, time.Duration) error { return nil }
	return client
}

func adherenceReq() contract.CompletionRequest {
	return contract.CompletionRequest{
		Role:         contract.RoleAdherence,
		SystemPrompt: "prompt",
		Transcript:   []contract.Turn{{Role: contract.TurnUser, Content: "hi"}},
	}
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	m := &fakeChatModel{errs: []error{
		errors.New("upstream returned 503"),
		errors.New("connection reset by peer"),
		nil,
	}}
	client := newTestClient(t, m)

	key := contract.ThreadKey{PatientID: "p1", Role: contract.RoleAdherence}
	result, err := client.Complete(context.Background(), key, adherenceReq())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if result.Text != "ok" {
		t.Fatalf("result.Text = %q", result.Text)
	}
	if m.calls != 3 {
		t.Fatalf("model called %d times, want 3", m.calls)
	}
}

func TestCompleteDoesNotRetryAuthFailures(t *testing.T) {
	t.Parallel()

	m := &fakeChatModel{errs: []error{errors.New("401 unauthorized")}}
	client := newTestClient(t, m)

	key := contract.ThreadKey{PatientID: "p1", Role: contract.RoleAdherence}
	_, err := client.Complete(context.Background(), key, adherenceReq())
	if !errors.Is(err, contract.ErrAuth) {
		t.Fatalf("err = %v, want ErrAuth", err)
	}
	if m.calls != 1 {
		t.Fatalf("model called %d times, want 1", m.calls)
	}
}

func TestCompleteExhaustsAttempts(t *testing.T) {
	t.Parallel()

	m := &fakeChatModel{errs: []error{
		errors.New("429 rate limit"),
		errors.New("429 rate limit"),
		errors.New("429 rate limit"),
	}}
	client := newTestClient(t, m)

	key := contract.ThreadKey{PatientID: "p1", Role: contract.RoleAdherence}
	_, err := client.Complete(context.Background(), key, adherenceReq())
	if !errors.Is(err, contract.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if m.calls != 3 {
		t.Fatalf("model called %d times, want 3", m.calls)
	}
}

func TestThreadContextInjectedOnce(t *testing.T) {
	t.Parallel()

	m := &fakeChatModel{}
	client := newTestClient(t, m)
	key := contract.ThreadKey{PatientID: "p1", Role: contract.RoleAdherence}

	req := adherenceReq()
	req.ThreadContext = "Patient: Jane"
	if _, err := client.Complete(context.Background(), key, req); err != nil {
		t.Fatalf("first Complete: %v", err)
	}

	req.ThreadContext = "Patient: SOMEONE ELSE"
	if _, err := client.Complete(context.Background(), key, req); err != nil {
		t.Fatalf("second Complete: %v", err)
	}

	second := m.received[1]
	var contexts []string
	for _, msg := range second {
		if msg.Role == schema.System {
			contexts = append(contexts, msg.Content)
		}
	}
	if len(contexts) != 2 {
		t.Fatalf("expected system prompt plus one context block, got %d system turns", len(contexts))
	}
	if contexts[1] != "Patient: Jane" {
		t.Fatalf("thread context was re-injected: %q", contexts[1])
	}
}

func TestToResultParsesToolCall(t *testing.T) {
	t.Parallel()

	msg := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID: "call_1",
			Function: schema.FunctionCall{
				Name:      "findAvailability",
				Arguments: `{"date":"2026-08-28"}`,
			},
		}},
	}
	result, err := toResult(msg)
	if err != nil {
		t.Fatalf("toResult: %v", err)
	}
	if result.ToolCall == nil || result.ToolCall.Name != "findAvailability" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.ToolCall.Args["date"] != "2026-08-28" {
		t.Fatalf("args not decoded: %+v", result.ToolCall.Args)
	}
}

func TestToResultRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	if _, err := toResult(schema.AssistantMessage("   ", nil)); !errors.Is(err, contract.ErrEmptyCompletion) {
		t.Fatalf("err = %v, want ErrEmptyCompletion", err)
	}
}
