package state

import (
	"strings"

	"followup-voicebot/agent/contract"
)

// Transcript is the append-only ordered turn history for one patient
// session. It is never shared across patients.
type Transcript struct {
	turns []contract.Turn
}

func NewTranscript() *Transcript {
	return &Transcript{}
}

func (t *Transcript) AppendUser(text string) {
	t.turns = append(t.turns, contract.Turn{Role: contract.TurnUser, Content: text})
}

// AppendAssistant appends a reply unless it would duplicate the immediately
// preceding assistant turn. The dedup keeps a failed tool round-trip from
// doubling a message.
func (t *Transcript) AppendAssistant(text string) bool {
	if last, ok := t.last(); ok && last.Role == contract.TurnAssistant && last.Content == text {
		return false
	}
	t.turns = append(t.turns, contract.Turn{Role: contract.TurnAssistant, Content: text})
	return true
}

func (t *Transcript) AppendToolCall(req *contract.ToolRequest) {
	t.turns = append(t.turns, contract.Turn{Role: contract.TurnAssistant, ToolCall: req})
}

func (t *Transcript) AppendToolResult(name, content string) {
	t.turns = append(t.turns, contract.Turn{Role: contract.TurnTool, ToolName: name, Content: content})
}

// Turns returns a copy; the transcript itself stays append-only.
func (t *Transcript) Turns() []contract.Turn {
	out := make([]contract.Turn, len(t.turns))
	copy(out, t.turns)
	return out
}

func (t *Transcript) Len() int { return len(t.turns) }

// LastAssistant returns the text of the most recent assistant turn that
// carried content (tool-call turns have none).
func (t *Transcript) LastAssistant() string {
	for i := len(t.turns) - 1; i >= 0; i-- {
		turn := t.turns[i]
		if turn.Role == contract.TurnAssistant && strings.TrimSpace(turn.Content) != "" {
			return turn.Content
		}
	}
	return ""
}

// LastUser returns the most recent user utterance.
func (t *Transcript) LastUser() string {
	for i := len(t.turns) - 1; i >= 0; i-- {
		if t.turns[i].Role == contract.TurnUser {
			return t.turns[i].Content
		}
	}
	return ""
}

func (t *Transcript) last() (contract.Turn, bool) {
	if len(t.turns) == 0 {
		return contract.Turn{}, false
	}
	return t.turns[len(t.turns)-1], true
}
