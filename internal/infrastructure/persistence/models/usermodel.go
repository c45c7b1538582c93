package models

import (
	"time"

	"github.com/servora/servora/internal/shared/constants"
)

// UserModel is the user directory row.
type UserModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	Name       string    `gorm:"size:100;not null"`
	Email      string    `gorm:"uniqueIndex;size:255;not null"`
	Role       string    `gorm:"size:20;not null;default:user"`
	Department string    `gorm:"size:100;index"`
	Active     bool      `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return constants.TableUsers
}

// All returns every model owned by the service, in creation order.
func All() []any {
	return []any{
		&UserModel{},
		&TicketModel{},
		&TicketTagModel{},
		&CommentModel{},
		&ActionEventModel{},
	}
}
