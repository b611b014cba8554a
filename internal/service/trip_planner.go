package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"wanderplan/internal/ai"
	"wanderplan/internal/modules/itinerary"
	"wanderplan/internal/modules/trip"
)

// Quota is the per-user AI allowance.
type Quota interface {
	UseToken(ctx context.Context, uid string) error
	Refund(ctx context.Context, uid string) error
}

// ConfigResolver picks the LLM configuration a user's generation runs with.
type ConfigResolver interface {
	Resolve(ctx context.Context, uid string) (ai.LLMConfig, error)
}

// TripSaver persists accepted itineraries.
type TripSaver interface {
	Create(ctx context.Context, userID string, cmd trip.CreateCommand) (trip.Trip, error)
}

type PlanRequest struct {
	UID      string
	Prompt   string
	Existing []itinerary.Activity
	// MaxRetries overrides the planner default when non-nil.
	MaxRetries *int
	// AutoSave stores a successful itinerary as a new trip titled Title (or the itinerary title).
	AutoSave bool
	Title    string
}

type PlanResult struct {
	itinerary.Result
	Days      []itinerary.Day `json:"days,omitempty"`
	Trip      *trip.Trip      `json:"trip,omitempty"`
	SaveError string          `json:"saveError,omitempty"`
}

// PlannerOptions tunes generation.
type PlannerOptions struct {
	MaxRetries int
	// StreamTimeout bounds one whole generation, retries included. Zero means no bound
	// beyond the caller's context.
	StreamTimeout time.Duration
}

// TripPlanner orchestrates quota, itinerary generation and saving.
type TripPlanner struct {
	generator *itinerary.Generator
	settings  ConfigResolver
	quota     Quota
	trips     TripSaver
	opts      PlannerOptions
	logger    *slog.Logger
}

// NewTripPlanner wires the planner. settings may be nil to use the generator's default
// configuration; quota and trips may be nil to run without a database.
func NewTripPlanner(generator *itinerary.Generator, settings ConfigResolver, quota Quota, trips TripSaver, opts PlannerOptions, logger *slog.Logger) *TripPlanner {
	return &TripPlanner{
		generator: generator,
		settings:  settings,
		quota:     quota,
		trips:     trips,
		opts:      opts,
		logger:    logger,
	}
}

// Plan resolves the caller's LLM settings, spends one quota token and generates an
// itinerary, streaming progress to onProgress. A user without settings spends nothing.
// A generation that fails before reaching the model refunds the token. Exhausted
// retries are reported in the result, not as an error.
func (p *TripPlanner) Plan(ctx context.Context, req PlanRequest, onProgress itinerary.ProgressFunc) (PlanResult, error) {
	if req.Prompt == "" {
		return PlanResult{}, fmt.Errorf("%w: prompt is empty", ErrBadRequest)
	}
	var cfg *ai.LLMConfig
	if p.settings != nil {
		resolved, err := p.settings.Resolve(ctx, req.UID)
		if err != nil {
			return PlanResult{}, err
		}
		cfg = &resolved
	}
	if p.quota != nil {
		if err := p.quota.UseToken(ctx, req.UID); err != nil {
			return PlanResult{}, err
		}
	}

	retries := p.opts.MaxRetries
	if req.MaxRetries != nil {
		retries = *req.MaxRetries
	}
	genCtx := ctx
	if p.opts.StreamTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, p.opts.StreamTimeout)
		defer cancel()
	}
	res, err := p.generator.Generate(genCtx, itinerary.Request{
		Prompt:   req.Prompt,
		Existing: req.Existing,
		Config:   cfg,
	}, onProgress, retries)
	if err != nil {
		if p.quota != nil && errors.Is(err, ai.ErrNotConfigured) {
			if rerr := p.quota.Refund(context.WithoutCancel(ctx), req.UID); rerr != nil {
				p.logger.Warn("refund ai token failed", "uid", req.UID, "error", rerr)
			}
		}
		return PlanResult{}, err
	}

	out := PlanResult{Result: res}
	if !res.Success {
		p.logger.Info("itinerary generation exhausted retries", "uid", req.UID, "retries", res.RetryCount, "error", res.Error)
		return out, nil
	}
	out.Days = itinerary.GroupByDay(res.Itinerary.Activities)

	if req.AutoSave && p.trips != nil {
		saved, err := p.trips.Create(ctx, req.UID, trip.CreateCommand{Title: req.Title, Itinerary: *res.Itinerary})
		if err != nil {
			p.logger.Error("auto-save trip failed", "uid", req.UID, "error", err)
			out.SaveError = "the itinerary was generated but could not be saved"
		} else {
			out.Trip = &saved
		}
	}
	return out, nil
}
