package turnnode

import (
	"fmt"
	"strings"
)

func ValidateTurn(in GraphInput) (*GraphState, error) {
	in.Utterance = strings.TrimSpace(in.Utterance)
	if in.Utterance == "" {
		return nil, ErrEmptyUtterance
	}
	if in.Profile == nil {
		return nil, fmt.Errorf("patient profile is required")
	}
	return &GraphState{
		GraphInput: in,
		Tracked:    in.Conv,
		NextConv:   in.Conv,
	}, nil
}
