package ticket

import (
	"context"
	"time"

	vo "github.com/servora/servora/internal/domain/ticket/valueobjects"
)

// Repository persists ticket aggregates.
type Repository interface {
	// Create inserts a new ticket together with its tags.
	Create(ctx context.Context, t *Ticket) error
	// Update writes a dirty ticket guarded by its previous version and fails
	// with a conflict error when another writer got there first.
	Update(ctx context.Context, t *Ticket) error
	// GetByID loads a ticket of the given type; soft-deleted tickets are only
	// returned when opts.IncludeDeleted is set.
	GetByID(ctx context.Context, ticketType vo.TicketType, id string, opts LoadOptions) (*Ticket, error)
	List(ctx context.Context, filter ListFilter) ([]*Ticket, int64, error)
	// CountByStatus aggregates live tickets of the type per status.
	CountByStatus(ctx context.Context, ticketType vo.TicketType) (map[vo.TicketStatus]int64, error)
}

// LoadOptions selects optional relations and tombstoned rows.
type LoadOptions struct {
	WithComments   bool
	IncludeDeleted bool
}

// CommentRepository stores comments; they are never updated or deleted.
type CommentRepository interface {
	AppendComment(ctx context.Context, c *Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]*Comment, error)
}

// ActionEventRepository is the append-only audit trail.
type ActionEventRepository interface {
	Append(ctx context.Context, e *ActionEvent) error
	// ListFor returns the events of a ticket ordered by time, oldest first.
	ListFor(ctx context.Context, ticketID string) ([]*ActionEvent, error)
}

// ListFilter selects tickets for List. Empty members do not filter.
type ListFilter struct {
	Type           vo.TicketType
	Statuses       []vo.TicketStatus
	Priorities     []vo.Priority
	Impacts        []vo.Impact
	AssigneeID     string
	ReporterID     string
	Search         string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
	Tags           []string
	IncludeClosed  bool
	IncludeDeleted bool

	// Visibility restricts results to tickets the viewer may see; nil means unrestricted.
	Visibility *Visibility

	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Visibility is the row-level restriction for non-admin viewers: tickets they
// reported, are assigned to, or (for department viewers) whose reporter
// shares their department.
type Visibility struct {
	UserID     string
	Department string
}
