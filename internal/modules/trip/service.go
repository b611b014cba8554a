package trip

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wanderplan/internal/modules/itinerary"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Create saves an itinerary for userID. The title defaults to the itinerary title and
// the status to planning.
func (s *Service) Create(ctx context.Context, userID string, cmd CreateCommand) (Trip, error) {
	if err := itinerary.Validate(cmd.Itinerary); err != nil {
		return Trip{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	status := cmd.Status
	if status == "" {
		status = StatusPlanning
	}
	if !status.Valid() {
		return Trip{}, fmt.Errorf("%w: unknown status %q", ErrBadRequest, status)
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		title = cmd.Itinerary.Title
	}
	data, err := json.Marshal(cmd.Itinerary)
	if err != nil {
		return Trip{}, fmt.Errorf("encode itinerary: %w", err)
	}
	return s.store.Create(ctx, Trip{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		Status: status,
		Data:   data,
	})
}

func (s *Service) Get(ctx context.Context, userID, id string) (Trip, error) {
	if !validID(id) {
		return Trip{}, ErrNotFound
	}
	return s.store.Get(ctx, userID, id)
}

// List pages through the user's trips, newest first. An empty status lists every trip.
func (s *Service) List(ctx context.Context, userID string, status Status, limit, offset int) (Page, error) {
	if status != "" && !status.Valid() {
		return Page{}, fmt.Errorf("%w: unknown status %q", ErrBadRequest, status)
	}
	limit, offset = normalizePage(limit, offset)
	items, total, err := s.store.List(ctx, userID, string(status), limit, offset)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, cmd UpdateCommand) (Trip, error) {
	if !validID(id) {
		return Trip{}, ErrNotFound
	}
	var title, status *string
	var data []byte
	if cmd.Title != nil {
		t := strings.TrimSpace(*cmd.Title)
		if t == "" {
			return Trip{}, fmt.Errorf("%w: title must not be empty", ErrBadRequest)
		}
		title = &t
	}
	if cmd.Status != nil {
		if !cmd.Status.Valid() {
			return Trip{}, fmt.Errorf("%w: unknown status %q", ErrBadRequest, *cmd.Status)
		}
		st := string(*cmd.Status)
		status = &st
	}
	if cmd.Itinerary != nil {
		if err := itinerary.Validate(*cmd.Itinerary); err != nil {
			return Trip{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
		}
		b, err := json.Marshal(cmd.Itinerary)
		if err != nil {
			return Trip{}, fmt.Errorf("encode itinerary: %w", err)
		}
		data = b
	}
	return s.store.Update(ctx, userID, id, title, status, data)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	return s.store.Delete(ctx, userID, id)
}

// Ids that cannot be UUIDs would make Postgres fail the cast, so they are treated as missing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
