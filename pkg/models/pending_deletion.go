package models

import (
	"time"

	"github.com/google/uuid"
)

// PendingDeletion schedules an object-store key for deletion after a grace
// window. Rows survive restarts; the sweeper deletes due objects and records
// the outcome here.
type PendingDeletion struct {
	ID          uuid.UUID  `db:"id"           json:"id"`
	ObjectKey   string     `db:"object_key"   json:"object_key"`
	DeleteAfter time.Time  `db:"delete_after" json:"delete_after"`
	Attempts    int        `db:"attempts"     json:"attempts"`
	LastError   *string    `db:"last_error"   json:"last_error,omitempty"`
	DeletedAt   *time.Time `db:"deleted_at"   json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}
