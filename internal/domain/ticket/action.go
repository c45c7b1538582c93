package ticket

import (
	"time"

	"github.com/google/uuid"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
)

// Payload keys shared by the action kinds.
const (
	PayloadFrom      = "from"
	PayloadTo        = "to"
	PayloadCommentID = "comment_id"
	PayloadInternal  = "internal"
	PayloadIncident  = "incident_id"
)

// ActionEvent is one append-only audit trail entry.
type ActionEvent struct {
	id        string
	ticketID  string
	kind      vo.ActionKind
	actorID   string
	payload   map[string]any
	createdAt time.Time
}

func newActionEvent(ticketID string, kind vo.ActionKind, actorID string, payload map[string]any, at time.Time) *ActionEvent {
	return &ActionEvent{
		id:        uuid.NewString(),
		ticketID:  ticketID,
		kind:      kind,
		actorID:   actorID,
		payload:   payload,
		createdAt: at.UTC(),
	}
}

func ReconstructActionEvent(id, ticketID string, kind vo.ActionKind, actorID string, payload map[string]any, createdAt time.Time) *ActionEvent {
	if payload == nil {
		payload = map[string]any{}
	}
	return &ActionEvent{
		id:        id,
		ticketID:  ticketID,
		kind:      kind,
		actorID:   actorID,
		payload:   payload,
		createdAt: createdAt,
	}
}

func (e *ActionEvent) ID() string            { return e.id }
func (e *ActionEvent) TicketID() string      { return e.ticketID }
func (e *ActionEvent) Kind() vo.ActionKind   { return e.kind }
func (e *ActionEvent) ActorID() string       { return e.actorID }
func (e *ActionEvent) CreatedAt() time.Time  { return e.createdAt }

// Payload returns a copy of the kind-specific payload.
func (e *ActionEvent) Payload() map[string]any {
	out := make(map[string]any, len(e.payload))
	for k, v := range e.payload {
		out[k] = v
	}
	return out
}

// From returns the "from" payload value; nil when absent or null.
func (e *ActionEvent) From() *string {
	return e.stringValue(PayloadFrom)
}

// To returns the "to" payload value; nil when absent or null.
func (e *ActionEvent) To() *string {
	return e.stringValue(PayloadTo)
}

func (e *ActionEvent) stringValue(key string) *string {
	v, ok := e.payload[key]
	if !ok || v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
