// Package resolver runs the per-step resolver set and reduces the
// settled outcomes to a single result.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/veergo/motorbff/pkg/config"
	"github.com/veergo/motorbff/pkg/eventbus"
	"github.com/veergo/motorbff/pkg/events"
	"github.com/veergo/motorbff/pkg/journey"
	"github.com/veergo/motorbff/pkg/proposal"
)

// Func resolves one piece of journey state for the current step.
type Func func(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string) (*proposal.Response, error)

// Step is one named resolver, recorded into state under Key.
type Step struct {
	Key     string
	Resolve Func
}

type outcome struct {
	key    string
	result *proposal.Response
	err    error
}

// Executor settles every step of a plan and arbitrates the outcomes.
// The bus is optional; arbitration events are best-effort.
type Executor struct {
	errors config.ErrorLookup
	bus    eventbus.EventBus
	logger *slog.Logger
}

func NewExecutor(errors config.ErrorLookup, bus eventbus.EventBus, logger *slog.Logger) *Executor {
	return &Executor{
		errors: errors,
		bus:    bus,
		logger: logger.With("module", "resolver"),
	}
}

// Run resolves all steps concurrently, waits for every one to settle and
// records each outcome into state before arbitration, so state is only
// written from this goroutine. Returns the arbitrated result.
func (e *Executor) Run(ctx context.Context, state journey.State, req *journey.Request, headers map[string]string, steps []Step) (*proposal.Result, error) {
	outcomes := make([]outcome, len(steps))

	var wg sync.WaitGroup

	for i, step := range steps {
		wg.Add(1)

		go func(i int, step Step) {
			defer wg.Done()

			result, err := step.Resolve(ctx, state, req, headers)
			outcomes[i] = outcome{key: step.Key, result: result, err: err}
		}(i, step)
	}

	wg.Wait()

	for _, settled := range outcomes {
		if settled.err != nil {
			e.logger.ErrorContext(ctx, "Resolver failed",
				"resolver", settled.key, "error", settled.err)

			return nil, settled.err
		}

		if settled.result != nil {
			state[settled.key] = settled.result.Data
		}
	}

	result, err := proposal.Arbitrate(state, e.errors)
	masked := e.errorEntryCount(state) - 1

	if err != nil {
		var apiErr *proposal.APIError
		if errors.As(err, &apiErr) {
			e.publishArbitrated(ctx, req.Journey, apiErr.Code, apiErr.Details.Action, masked)
		}

		return nil, err
	}

	if record, isRecord := result.Data.(proposal.ErrorRecord); isRecord {
		e.publishArbitrated(ctx, req.Journey, record.Code, record.Details.Action, masked)
	}

	return result, nil
}

// errorEntryCount counts the settled entries carrying a configured
// error code.
func (e *Executor) errorEntryCount(state journey.State) int {
	count := 0

	for _, value := range state {
		entry, isMap := value.(map[string]any)
		if !isMap {
			continue
		}

		code, isStr := entry["error_code"].(string)
		if !isStr {
			continue
		}

		if _, known := e.errors.Lookup(code); known {
			count++
		}
	}

	return count
}

// publishArbitrated records the single failure surfaced to the client
// and how many lower-priority failures it masked.
func (e *Executor) publishArbitrated(ctx context.Context, journeyName, code, action string, masked int) {
	if e.bus == nil {
		return
	}

	event := events.ErrorArbitrated{
		BaseEvent: events.NewBaseEvent(events.ErrorArbitratedEvent, journeyName),
		Code:      code,
		Action:    action,
		Masked:    masked,
	}

	if err := e.bus.Publish(ctx, event); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish arbitration event", "error", err)
	}
}
