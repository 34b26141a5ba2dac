package router

import (
	"context"
	"errors"
	"testing"

	"followup-voicebot/agent/contract"
	"followup-voicebot/agent/state"
)

type stubClient struct {
	text  string
	err   error
	calls int
}

func (s *stubClient) Complete(context.Context, contract.ThreadKey, contract.CompletionRequest) (*contract.CompletionResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &contract.CompletionResult{Text: s.text}, nil
}

func TestSafetyKeywordNeverReachesTriage(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "ROUTE_TO_ADHERENCE"}
	r := New(client)

	route := r.Classify(context.Background(), "p1", "ctx", "prompt",
		state.NewConversation(), "I have chest pain", "")
	if route != contract.RouteSafety {
		t.Fatalf("route = %v, want safety", route)
	}
	if client.calls != 0 {
		t.Fatal("safety classification must not call the completion service")
	}
}

func TestClassifyParsesLabelInsideProse(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "Based on the message, ROUTE_TO_SCHEDULING is correct."}
	r := New(client)

	route := r.Classify(context.Background(), "p1", "ctx", "prompt",
		state.NewConversation(), "what times are open", "")
	if route != contract.RouteScheduling {
		t.Fatalf("route = %v, want scheduling", route)
	}
}

func TestClassifyFallsBackToKeywordsOnError(t *testing.T) {
	t.Parallel()

	client := &stubClient{err: errors.New("completion down")}
	r := New(client)

	route := r.Classify(context.Background(), "p1", "ctx", "prompt",
		state.NewConversation(), "question about my medication dosage", "")
	if route != contract.RouteAdherence {
		t.Fatalf("route = %v, want adherence from keyword fallback", route)
	}
}

func TestPostAdherenceTurnsLockToScheduling(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "ROUTE_TO_ADHERENCE"}
	r := New(client)

	conv := state.NewConversation().CompleteAdherence()
	route := r.Classify(context.Background(), "p1", "ctx", "prompt",
		conv, "actually about my pills again", "")
	if route != contract.RouteScheduling {
		t.Fatalf("route = %v, want scheduling lock after adherence completes", route)
	}
}

func TestUnrecognizedLabelUsesKeywordFallback(t *testing.T) {
	t.Parallel()

	client := &stubClient{text: "I think the patient wants to chat."}
	r := New(client)

	route := r.Classify(context.Background(), "p1", "ctx", "prompt",
		state.NewConversation(), "can we book a visit", "")
	if route != contract.RouteScheduling {
		t.Fatalf("route = %v, want scheduling from keywords", route)
	}
}
