// Package orchestrator is the client for the upstream proposal-management
// service. Every call receives its configuration explicitly; there are no
// process-wide default headers.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/eventbus"
	"github.com/veergo/motorbff/pkg/events"
	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/objectpath"
	"github.com/veergo/motorbff/pkg/otelhelper"
	"github.com/veergo/motorbff/pkg/proposal"
)

// Upstream URL templates, relative to the base URL.
const (
	proposalPath             = "/api/v1/proposals/{proposalEkey}"
	proposalByRegistrationPath = "/internal/api/advisor/proposal_list/{registrationNumber}"
	proposalByPaymentPath    = "/internal/api/advisor/proposal/{paymentId}"
	proposalByEkeyPath       = "/internal/api/v1/proposals/{proposalEkey}"
)

// The upstream rejects commercial vehicles with this free-text message;
// it is mapped to a stable code so arbitration acts deterministically.
const (
	privateOnlyRejectionMessage = "vehicle type not supported for private-only underwriting"
	CodeCommercialVehicle       = "COMMERCIAL_VEHICLE"
)

const defaultTimeout = 30 * time.Second

// ClientConfig is the explicit per-client configuration.
type ClientConfig struct {
	BaseURL string
	AppName string
	Origin  string
	Timeout time.Duration
}

type Client struct {
	cfg      ClientConfig
	http     *http.Client
	cfgStore *config.Store
	logger   *slog.Logger
	tracer   trace.Tracer
	bus      eventbus.EventBus
}

// NewClient builds a proposal-service client. Tracer and bus may be nil;
// tracing and analytics are then skipped.
func NewClient(cfg ClientConfig, cfgStore *config.Store, logger *slog.Logger, tracer trace.Tracer, bus eventbus.EventBus) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		cfgStore: cfgStore,
		logger:   logger.With("module", "orchestrator"),
		tracer:   tracer,
		bus:      bus,
	}
}

// GetProposal fetches the proposal, records the raw copy under
// mo_proposal and returns a normalized view: vehicle type label, coupon
// display name backfill, epoch dates converted, first-seen premium kept.
func (c *Client) GetProposal(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	url := proposal.BuildURL(c.cfg.BaseURL+proposalPath, map[string]string{
		"proposalEkey": proposal.Ekey(state, req),
	})

	ctx, span := c.startSpan(ctx, "orchestrator.get_proposal", url, req)
	defer span.End()

	c.logger.InfoContext(ctx, "Fetching proposal", c.logAttrs(state, req, headers)...)

	result, err := c.do(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		otelhelper.SetError(span, err)
		c.publishFailure(ctx, "proposal", state, req, err)

		return nil, err
	}

	state[journey.StateKeyMOProposal] = result.Data

	view := &proposal.Response{Status: result.Status, Data: cloneMap(result.Data)}
	decorateProposalView(view)
	proposal.NormalizeEpochDates(view, proposal.DefaultEpochDatePaths)

	if !truthyState(state, "oldPremium") {
		if premium, ok := objectpath.Lookup(view.Data, "policy_attributes.plan.net_premium"); ok {
			state["oldPremium"] = premium
		}
	}

	return view, nil
}

// UpdateProposal sends the node-conditioned update. Upstream rejections
// are captured as response-shaped errors and recorded into the resolved
// state for arbitration rather than returned as Go errors; only a caller
// contract violation (missing data) or a semantic 200-with-error is
// raised.
func (c *Client) UpdateProposal(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	url := proposal.BuildURL(c.cfg.BaseURL+proposalPath, map[string]string{
		"proposalEkey": proposal.Ekey(state, req),
	})

	ctx, span := c.startSpan(ctx, "orchestrator.update_proposal", url, req)
	defer span.End()

	// Addons ride along in the request but are not a proposal field; hold
	// them aside and restore after the call.
	selectedAddons, hadAddons := req.Data["selected_addons"]
	delete(req.Data, "selected_addons")

	defer func() {
		if hadAddons {
			req.Data["selected_addons"] = selectedAddons
		}
	}()

	rules := proposal.NewRuleset(c.cfgStore.Current().Diff)
	builder := proposal.NewBuilder(rules)
	if c.cfg.Origin != "" {
		builder.Origin = c.cfg.Origin
	}

	body, err := builder.BuildUpdateBody(state, req, headers)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	c.logger.InfoContext(ctx, "Updating proposal", c.logAttrs(state, req, headers)...)

	result, err := c.do(ctx, http.MethodPut, url, body, headers)
	if err != nil {
		// Transport failure: synthesize a response-shaped error so the
		// arbitrator can still act on it.
		result = &proposal.Response{
			Status: http.StatusBadGateway,
			Data:   map[string]any{"error_message": err.Error()},
		}
		otelhelper.SetError(span, err)
	}

	var flowErr error

	if result.OK() {
		flowErr = proposal.DetectIllogicalFlow(result)
		if flowErr != nil {
			c.publishIllogicalFlow(ctx, state, req, flowErr)
		} else {
			proposal.NormalizeEpochDates(result, proposal.DefaultEpochDatePaths)
			decorateCoupon(result)
			proposal.EnrichResolvedState(state, req, result)
		}
	} else {
		c.captureUpdateRejection(ctx, state, req, result)
	}

	state[journey.StateKeyMOProposal] = cloneMap(result.Data)
	state[journey.StateKeyProposal] = cloneMap(result.Data)

	return result, flowErr
}

// captureUpdateRejection maps the recognized private-only underwriting
// rejection to a stable error code and records the failure.
func (c *Client) captureUpdateRejection(ctx context.Context, state journey.State, req *journey.Request, result *proposal.Response) {
	message, _ := result.Data["error_message"].(string)
	if message == privateOnlyRejectionMessage {
		result.Data["error_code"] = CodeCommercialVehicle
		result.Data["errorMessage"] = message
	}

	c.logger.ErrorContext(ctx, "Proposal update failed",
		append(c.logAttrs(state, req, nil), "status", result.Status, "error", message)...)
	c.publishFailure(ctx, "proposal", state, req, fmt.Errorf("proposal update failed: %s", message))
}

// GetProposalsByRegistrationNumber looks up all proposals for a vehicle.
// A request without a registration number resolves to an empty list.
func (c *Client) GetProposalsByRegistrationNumber(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	return c.advisorLookup(ctx, state, req, headers, proposalByRegistrationPath, "registrationNumber", "registration_number")
}

// GetProposalByPaymentID looks up the proposal attached to a payment.
func (c *Client) GetProposalByPaymentID(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	return c.advisorLookup(ctx, state, req, headers, proposalByPaymentPath, "paymentId", "payment_id")
}

// GetProposalByEkey looks up a proposal directly by its ekey.
func (c *Client) GetProposalByEkey(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string) (*proposal.Response, error) {
	return c.advisorLookup(ctx, state, req, headers, proposalByEkeyPath, "proposalEkey", "proposal_ekey")
}

func (c *Client) advisorLookup(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string, path, pathVar, dataKey string) (*proposal.Response, error) {
	value, ok := req.DataString(dataKey)
	if !ok {
		return &proposal.Response{Status: http.StatusOK, Data: map[string]any{"data": []any{}}}, nil
	}

	url := proposal.BuildURL(c.cfg.BaseURL+path, map[string]string{pathVar: value})

	ctx, span := c.startSpan(ctx, "orchestrator.advisor_lookup", url, req)
	defer span.End()

	c.logger.InfoContext(ctx, "Advisor proposal lookup", c.logAttrs(state, req, headers)...)

	result, err := c.do(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		otelhelper.SetError(span, err)
		c.publishFailure(ctx, dataKey, state, req, err)

		return nil, fmt.Errorf("failed to fetch proposal from orchestrator: %w", err)
	}

	return result, nil
}

// do performs one upstream round trip with per-call headers and decodes
// the JSON body. Non-2xx statuses are returned as responses, not errors;
// only transport failures error out.
func (c *Client) do(ctx context.Context, method, url string, body map[string]any, headers map[string]string) (*proposal.Response, error) {
	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}

	httpReq.Header.Set("x-app-name", c.cfg.AppName)
	httpReq.Header.Set("source", c.cfg.AppName)
	httpReq.Header.Set("Content-Type", "application/json")

	if cookie, ok := headers["cookie"]; ok && method == http.MethodPut {
		httpReq.Header.Set("Cookie", cookie)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream call failed: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	data := make(map[string]any)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode upstream response: %w", err)
		}
	}

	return &proposal.Response{Status: httpResp.StatusCode, Data: data}, nil
}

func (c *Client) startSpan(ctx context.Context, name, url string, req *journey.Request) (context.Context, trace.Span) {
	if c.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, c.tracer, name,
		attribute.String(otelhelper.UpstreamURLKey, url),
		attribute.String(otelhelper.CurrentNodeKey, req.CurrentNode),
	)
}

// logAttrs builds the shared logging context: tracker id, proposal id,
// registration number and current node when known.
func (c *Client) logAttrs(state journey.State, req *journey.Request, headers map[string]string) []any {
	attrs := make([]any, 0, 8)

	if ekey := proposal.Ekey(state, req); ekey != "" {
		attrs = append(attrs, "proposal_id", ekey)
	}

	if registration, ok := state.Lookup(journey.StateKeyProposal, "vehicle.registration_number"); ok {
		attrs = append(attrs, "registration_number", registration)
	}

	if tracker := headers["x-tracker-id"]; tracker != "" {
		attrs = append(attrs, "tracker_id", tracker)
	}

	if req.CurrentNode != "" {
		attrs = append(attrs, "current_node", req.CurrentNode)
	}

	return attrs
}

func (c *Client) publishFailure(ctx context.Context, resolver string, state journey.State, req *journey.Request, err error) {
	if c.bus == nil {
		return
	}

	event := events.UpstreamCallFailed{
		BaseEvent:   events.NewBaseEvent(events.UpstreamCallFailedEvent, req.Journey),
		Resolver:    resolver,
		CurrentNode: req.CurrentNode,
		ProposalID:  proposal.Ekey(state, req),
		Error:       err.Error(),
	}

	if publishErr := c.bus.Publish(ctx, event); publishErr != nil {
		c.logger.WarnContext(ctx, "Failed to publish upstream failure event", "error", publishErr)
	}
}

func (c *Client) publishIllogicalFlow(ctx context.Context, state journey.State, req *journey.Request, flowErr error) {
	if c.bus == nil {
		return
	}

	event := events.IllogicalFlow{
		BaseEvent:   events.NewBaseEvent(events.IllogicalFlowEvent, req.Journey),
		CurrentNode: req.CurrentNode,
		ProposalID:  proposal.Ekey(state, req),
		Message:     flowErr.Error(),
	}

	if publishErr := c.bus.Publish(ctx, event); publishErr != nil {
		c.logger.WarnContext(ctx, "Failed to publish illogical flow event", "error", publishErr)
	}
}

// decorateProposalView adds the display fields the upstream omits.
func decorateProposalView(view *proposal.Response) {
	if vehicle, ok := objectpath.GetMap(view.Data, objectpath.Parse("vehicle")); ok {
		label := "Private"
		if commercial, _ := objectpath.Lookup(vehicle, "is_commercial"); commercial == true {
			label = "Commercial"
		}

		vehicle["vehicle_type"] = label
	}

	decorateCoupon(view)
}

// decorateCoupon backfills the coupon display name from its code.
func decorateCoupon(resp *proposal.Response) {
	coupon, ok := objectpath.GetMap(resp.Data, objectpath.Parse("coupon"))
	if !ok {
		return
	}

	code, hasCode := coupon["code"].(string)
	display, hasDisplay := coupon["coupon_display_name"].(string)

	if hasCode && code != "" && (!hasDisplay || display == "") {
		coupon["coupon_display_name"] = code
	}
}

func truthyState(state journey.State, key string) bool {
	value, ok := state[key]

	return ok && value != nil
}

// cloneMap deep-copies decoded JSON data through a marshal round trip, so
// resolved-state copies never alias response data.
func cloneMap(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}

	clone := make(map[string]any, len(data))
	if err := json.Unmarshal(raw, &clone); err != nil {
		return data
	}

	return clone
}
