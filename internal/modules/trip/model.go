// README: Saved trips; an accepted itinerary persisted as JSON and scoped to its owner.
package trip

import (
	"encoding/json"
	"errors"
	"time"

	"wanderplan/internal/modules/itinerary"
)

var (
	ErrNotFound   = errors.New("trip not found")
	ErrBadRequest = errors.New("invalid trip")
)

type Status string

const (
	StatusPlanning  Status = "planning"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

type Trip struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Title     string          `json:"title"`
	Status    Status          `json:"status"`
	Data      json.RawMessage `json:"tripData"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Itinerary decodes the stored trip data.
func (t Trip) Itinerary() (itinerary.Itinerary, error) {
	var it itinerary.Itinerary
	err := json.Unmarshal(t.Data, &it)
	return it, err
}

type CreateCommand struct {
	Title     string
	Status    Status
	Itinerary itinerary.Itinerary
}

// UpdateCommand changes only the non-nil fields.
type UpdateCommand struct {
	Title     *string
	Status    *Status
	Itinerary *itinerary.Itinerary
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Page struct {
	Items  []Trip `json:"items"`
	Total  int64  `json:"total"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
