package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	nodex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/nodes"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	type step = func(context.Context, *nodex.GraphState) (*nodex.GraphState, error)
	steps := []struct {
		key string
		fn  step
	}{
		{"load_or_create_state", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateState(ctx, in, o.store)
		}},
		{"classify_intent", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ClassifyIntent(ctx, in, o.models.Classifier(), o.capabilityTimeout)
		}},
		{string(contractx.NodeGreeting), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.Greet(ctx, in, o.models.Greeter(), o.capabilityTimeout)
		}},
		{string(contractx.NodeEnquiry), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AnswerEnquiry(ctx, in, o.retriever, o.models.Enquirer(), o.topK, o.capabilityTimeout)
		}},
		{string(contractx.NodeLeadAsk), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.AskForLead(ctx, in, o.models.LeadAsker(), o.capabilityTimeout)
		}},
		{string(contractx.NodeLeadExtract), func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExtractLead(ctx, in, o.models.Extractor(), o.brand, o.capabilityTimeout)
		}},
		{"persist_state", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.PersistState(ctx, in, o.store)
		}},
	}

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}
	for _, s := range steps {
		if err := graph.AddLambdaNode(s.key, compose.InvokableLambda(s.fn)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", s.key, err)
		}
	}
	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	targets := make(map[string]bool, len(nodex.Nodes))
	for _, n := range nodex.Nodes {
		targets[string(n)] = true
	}
	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
			}
			return string(nodex.Route(in.Intent)), nil
		},
		targets,
	)
	if err := graph.AddBranch("classify_intent", branch); err != nil {
		return nil, fmt.Errorf("add router branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_state"},
		{"load_or_create_state", "classify_intent"},
	}
	for _, n := range nodex.Nodes {
		edges = append(edges, [2]string{string(n), "persist_state"})
	}
	edges = append(edges,
		[2]string{"persist_state", "finalize_reply"},
		[2]string{"finalize_reply", compose.END},
	)

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
