package turnnode

import "followup-voicebot/agent/state"

// TrackState applies the lexical tracker to the current exchange. The result
// becomes the working state for routing and the default committed state.
func TrackState(in *GraphState) (*GraphState, error) {
	in.Tracked = state.Track(in.Conv, in.Utterance, in.LastAssistant)
	in.NextConv = in.Tracked
	return in, nil
}
