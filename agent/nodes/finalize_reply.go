package turnnode

import "strings"

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, ErrEmptyReply
	}
	return GraphOutput{
		Reply:    reply,
		NextConv: in.NextConv,
		Staged:   in.Staged,
	}, nil
}
