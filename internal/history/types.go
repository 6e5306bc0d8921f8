package history

import (
	"errors"
	"time"
)

var (
	ErrBatchNotFound = errors.New("rename batch not found")
	ErrEntryNotFound = errors.New("journal entry not found")
)

// Status is the state of a journaled rename.
type Status string

const (
	StatusApplied    Status = "applied"
	StatusRolledBack Status = "rolled_back"
)

// Entry is one applied rename in the journal.
type Entry struct {
	ID           int64      `json:"id"`
	BatchID      string     `json:"batchId"`
	Seq          int        `json:"seq"`
	Source       string     `json:"source"`
	Target       string     `json:"target"`
	Status       Status     `json:"status"`
	RenamedAt    time.Time  `json:"renamedAt"`
	RolledBackAt *time.Time `json:"rolledBackAt,omitempty"`
}

// Batch summarizes one journaled rename batch.
type Batch struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Applied    int       `json:"applied"`
	RolledBack int       `json:"rolledBack"`
}

// ListOptions contains options for listing batches.
type ListOptions struct {
	Page     int
	PageSize int
}

// ListResponse contains paginated batch results.
type ListResponse struct {
	Items      []*Batch `json:"items"`
	Page       int      `json:"page"`
	PageSize   int      `json:"pageSize"`
	TotalCount int64    `json:"totalCount"`
	TotalPages int      `json:"totalPages"`
}
