package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	turnnode "followup-voicebot/agent/nodes"
)

func (o *Orchestrator) compileTurnGraph(ctx context.Context) (compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput], error) {
	graph := compose.NewGraph[turnnode.GraphInput, turnnode.GraphOutput]()

	if err := graph.AddLambdaNode("validate_turn",
		compose.InvokableLambda(func(ctx context.Context, in turnnode.GraphInput) (*turnnode.GraphState, error) {
			return turnnode.ValidateTurn(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_turn: %w", err)
	}

	if err := graph.AddLambdaNode("track_state",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.TrackState(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node track_state: %w", err)
	}

	if err := graph.AddLambdaNode("classify_route",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.ClassifyRoute(ctx, in, o.router)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_route: %w", err)
	}

	if err := graph.AddLambdaNode(turnnode.TargetSafety,
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.SafetyReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", turnnode.TargetSafety, err)
	}

	if err := graph.AddLambdaNode(turnnode.TargetAdherence,
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.RunAdherence(ctx, in, o.client)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", turnnode.TargetAdherence, err)
	}

	if err := graph.AddLambdaNode(turnnode.TargetScheduling,
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.RunScheduling(ctx, in, o.loop)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", turnnode.TargetScheduling, err)
	}

	if err := graph.AddLambdaNode(turnnode.TargetFallback,
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (*turnnode.GraphState, error) {
			return turnnode.FallbackReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", turnnode.TargetFallback, err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *turnnode.GraphState) (turnnode.GraphOutput, error) {
			return turnnode.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *turnnode.GraphState) (string, error) {
			return turnnode.SelectTarget(in), nil
		},
		map[string]bool{
			turnnode.TargetSafety:     true,
			turnnode.TargetAdherence:  true,
			turnnode.TargetScheduling: true,
			turnnode.TargetFallback:   true,
		},
	)
	if err := graph.AddBranch("classify_route", branch); err != nil {
		return nil, fmt.Errorf("add routing branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_turn"},
		{"validate_turn", "track_state"},
		{"track_state", "classify_route"},
		{turnnode.TargetSafety, "finalize_reply"},
		{turnnode.TargetAdherence, "finalize_reply"},
		{turnnode.TargetScheduling, "finalize_reply"},
		{turnnode.TargetFallback, "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}
