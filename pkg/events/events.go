// Package events defines the analytics events emitted while evaluating
// journey steps. Emission is best effort and never blocks or fails a
// client request.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries all journey analytics events.
const Topic = "motorbff.analytics"

const EventTypeMetadataKey = "event_type"

const (
	NodeEvaluatedEvent       EventType = "journey.node.evaluated"
	UpstreamCallFailedEvent  EventType = "journey.upstream.failed"
	ErrorArbitratedEvent     EventType = "journey.error.arbitrated"
	IllogicalFlowEvent       EventType = "journey.upstream.illogical_flow"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Journey   string         `json:"journey,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, journey string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Journey:   journey,
	}
}

// NodeEvaluated records one round trip through a workflow node.
type NodeEvaluated struct {
	BaseEvent

	CurrentNode string `json:"current_node"`
	ProposalID  string `json:"proposal_id,omitempty"`
	TrackerID   string `json:"tracker_id,omitempty"`
	DurationMS  int64  `json:"duration_ms"`
}

func (e NodeEvaluated) GetType() EventType {
	return NodeEvaluatedEvent
}

// UpstreamCallFailed records a transport or HTTP failure of one upstream
// resolver call.
type UpstreamCallFailed struct {
	BaseEvent

	Resolver    string `json:"resolver"`
	CurrentNode string `json:"current_node,omitempty"`
	ProposalID  string `json:"proposal_id,omitempty"`
	Error       string `json:"error"`
}

func (e UpstreamCallFailed) GetType() EventType {
	return UpstreamCallFailedEvent
}

// ErrorArbitrated records the single failure selected among the settled
// resolvers of one step, and how many lower-priority failures it masked.
type ErrorArbitrated struct {
	BaseEvent

	Code   string `json:"code"`
	Action string `json:"action"`
	Masked int    `json:"masked"`
}

func (e ErrorArbitrated) GetType() EventType {
	return ErrorArbitratedEvent
}

// IllogicalFlow records a 200 envelope carrying an embedded upstream
// rejection.
type IllogicalFlow struct {
	BaseEvent

	CurrentNode string `json:"current_node,omitempty"`
	ProposalID  string `json:"proposal_id,omitempty"`
	Message     string `json:"message"`
}

func (e IllogicalFlow) GetType() EventType {
	return IllogicalFlowEvent
}

// Event is implemented by every analytics event.
type Event interface {
	GetType() EventType
}
