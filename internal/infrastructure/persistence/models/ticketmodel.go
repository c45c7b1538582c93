package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/servora/servora/internal/shared/constants"
)

// TicketModel is the row of every ticket type. Columns that only apply to
// one type stay empty for the others.
type TicketModel struct {
	ID                 string  `gorm:"primaryKey;size:36"`
	Number             string  `gorm:"uniqueIndex;size:20;not null"`
	TicketType         string  `gorm:"size:20;not null;index:idx_tickets_type_status,priority:1"`
	Title              string  `gorm:"size:200;not null"`
	Description        string  `gorm:"type:text;not null"`
	Status             string  `gorm:"size:32;not null;index:idx_tickets_type_status,priority:2"`
	Priority           string  `gorm:"size:20;not null;index"`
	Impact             string  `gorm:"size:20;not null"`
	ReporterID         string  `gorm:"size:36;not null;index"`
	ReporterDepartment string  `gorm:"size:100;index"`
	AssigneeID         *string `gorm:"size:36;index"`
	Category           string  `gorm:"size:100"`

	ResolutionNotes    string         `gorm:"type:text"`
	RootCause          string         `gorm:"type:text"`
	Workaround         string         `gorm:"type:text"`
	Solution           string         `gorm:"type:text"`
	RelatedIncidentIDs datatypes.JSON `gorm:"column:related_incident_ids"`

	ChangeType         string `gorm:"size:20"`
	RiskLevel          string `gorm:"size:20"`
	ScheduledStart     *time.Time
	ScheduledEnd       *time.Time
	ImplementationPlan string `gorm:"type:text"`
	BackoutPlan        string `gorm:"type:text"`

	// Timestamps come from the aggregate clock, never from gorm.
	Version    int       `gorm:"not null;default:1"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;not null;index"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false;not null"`
	ResolvedAt *time.Time
	ClosedAt   *time.Time
	DeletedAt  *time.Time `gorm:"index"`

	// Tags live in ticket_tags; loaded separately, never written through this field.
	Tags []TicketTagModel `gorm:"-"`
}

func (TicketModel) TableName() string {
	return constants.TableTickets
}

// TicketTagModel is one normalized tag of a ticket.
type TicketTagModel struct {
	TicketID string `gorm:"primaryKey;size:36"`
	Tag      string `gorm:"primaryKey;size:50;index"`
}

func (TicketTagModel) TableName() string {
	return constants.TableTicketTags
}

// CommentModel is an append-only comment row; Seq orders comments posted
// within the same instant.
type CommentModel struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	ID         string    `gorm:"uniqueIndex;size:36;not null"`
	TicketID   string    `gorm:"size:36;not null;index"`
	AuthorID   string    `gorm:"size:36;not null"`
	Body       string    `gorm:"type:text;not null"`
	IsInternal bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;not null;index"`
}

func (CommentModel) TableName() string {
	return constants.TableTicketComments
}

// ActionEventModel is an audit trail row. Rows are inserted and never updated;
// Seq orders events recorded within the same instant.
type ActionEventModel struct {
	Seq       uint64         `gorm:"primaryKey;autoIncrement"`
	ID        string         `gorm:"uniqueIndex;size:36;not null"`
	TicketID  string         `gorm:"size:36;not null;index:idx_action_events_ticket_time,priority:1"`
	Kind      string         `gorm:"size:40;not null"`
	ActorID   string         `gorm:"size:36;not null"`
	Payload   datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"autoCreateTime:false;not null;index:idx_action_events_ticket_time,priority:2"`
}

func (ActionEventModel) TableName() string {
	return constants.TableTicketActionEvents
}
