// Package services implements the business logic behind the HTTP
// handlers.
package services

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/veergo/motorbff/pkg/eventbus"
	"github.com/veergo/motorbff/pkg/events"
	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/orchestrator"
	"github.com/veergo/motorbff/pkg/proposal"
	"github.com/veergo/motorbff/pkg/resolver"
	"github.com/veergo/motorbff/pkg/segment"
)

// Nodes whose requests pass through the proposal-update pipeline. Any
// other current_node falls back to a plain proposal fetch.
var updateNodes = []string{
	journey.NodeUserInfo,
	journey.NodePreviousPolicyConfirmation,
	journey.NodePreviousClaimConfirmation,
	journey.NodeEnterMMVDetails,
	journey.NodeEditMMVDetails,
	journey.NodeCheckoutDetails,
	journey.NodeCheckoutReview,
	journey.NodeVerifyOTP,
}

// Journey drives one workflow step: fetch the proposal, apply the
// node-conditioned update and arbitrate the settled outcomes.
type Journey struct {
	client   *orchestrator.Client
	executor *resolver.Executor
	bus      eventbus.EventBus
	logger   *slog.Logger
}

func NewJourney(client *orchestrator.Client, executor *resolver.Executor, bus eventbus.EventBus, logger *slog.Logger) *Journey {
	return &Journey{
		client:   client,
		executor: executor,
		bus:      bus,
		logger:   logger.With("module", "journey"),
	}
}

// Next evaluates one step. The resolved proposal always seeds the state
// first, so the update rules can read the previously stored object.
func (j *Journey) Next(ctx context.Context, req *journey.Request, headers map[string]string) (*proposal.Result, error) {
	started := time.Now()
	state := journey.State{}

	if req.CurrentNode == "" {
		req.CurrentNode = journey.NodeUnknown
	}

	view, err := j.client.GetProposal(ctx, state, req, headers)
	if err != nil {
		return nil, err
	}

	state[journey.StateKeyProposal] = view.Data

	if !slices.Contains(updateNodes, req.CurrentNode) {
		j.publishEvaluated(ctx, state, req, started)

		return &proposal.Result{Data: view.Data, Status: view.Status}, nil
	}

	steps := []resolver.Step{
		{Key: "update_proposal", Resolve: j.client.UpdateProposal},
	}

	result, err := j.executor.Run(ctx, state, req, headers, steps)
	if err != nil {
		return nil, err
	}

	// No arbitrated failure: the client gets the updated proposal.
	if result.Data == nil {
		result.Data = state[journey.StateKeyProposal]
	}

	j.publishEvaluated(ctx, state, req, started)

	return result, nil
}

// Segment projects the resolved state into the flat analytics profile.
func (j *Journey) Segment(ctx context.Context, req *journey.Request, headers map[string]string) (*proposal.Result, error) {
	state := journey.State{}

	if _, err := j.client.GetProposal(ctx, state, req, headers); err != nil {
		return nil, err
	}

	return segment.Build(state), nil
}

// ProposalsByRegistrationNumber looks up the proposals for a vehicle.
func (j *Journey) ProposalsByRegistrationNumber(ctx context.Context, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	return j.client.GetProposalsByRegistrationNumber(ctx, journey.State{}, req, headers)
}

// ProposalByPaymentID looks up the proposal attached to a payment.
func (j *Journey) ProposalByPaymentID(ctx context.Context, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	return j.client.GetProposalByPaymentID(ctx, journey.State{}, req, headers)
}

// ProposalByEkey looks up a proposal directly by its ekey.
func (j *Journey) ProposalByEkey(ctx context.Context, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	return j.client.GetProposalByEkey(ctx, journey.State{}, req, headers)
}

// HealthCheck reports whether the upstream dependency set is usable.
func (j *Journey) HealthCheck(_ context.Context) (string, bool) {
	if j.client == nil {
		return "Upstream client not initialized", false
	}

	return "Journey service is healthy", true
}

func (j *Journey) publishEvaluated(ctx context.Context, state journey.State, req *journey.Request, started time.Time) {
	if j.bus == nil {
		return
	}

	event := events.NodeEvaluated{
		BaseEvent:   events.NewBaseEvent(events.NodeEvaluatedEvent, req.Journey),
		CurrentNode: req.CurrentNode,
		ProposalID:  proposal.Ekey(state, req),
		DurationMS:  time.Since(started).Milliseconds(),
	}

	if err := j.bus.Publish(ctx, event); err != nil {
		j.logger.WarnContext(ctx, "Failed to publish node evaluation event", "error", err)
	}
}
