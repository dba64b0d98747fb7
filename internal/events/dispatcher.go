package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/communiconnect/insights/internal/config"
	"github.com/communiconnect/insights/internal/gamification"
	"github.com/communiconnect/insights/internal/moderation"
	"github.com/communiconnect/insights/internal/repository"
	"github.com/communiconnect/insights/internal/scoring"
	"github.com/communiconnect/insights/internal/worker"
)

// Dispatcher consumes alert events from the bus and runs the follow-up
// pipeline for each one: content analysis on new alerts, reliability
// recomputation for the author, and achievement evaluation.
type Dispatcher struct {
	cfg      *config.Config
	bus      *Bus
	alerts   repository.AlertRepository
	scorer   *scoring.Scorer
	engine   *gamification.Engine
	analyzer moderation.ContentAnalyzer

	subID uint64
	pool  *worker.Pool[AlertEvent]
	wg    sync.WaitGroup
}

func NewDispatcher(cfg *config.Config, bus *Bus, alerts repository.AlertRepository, scorer *scoring.Scorer, engine *gamification.Engine, analyzer moderation.ContentAnalyzer) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		bus:      bus,
		alerts:   alerts,
		scorer:   scorer,
		engine:   engine,
		analyzer: analyzer,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	d.pool = worker.NewPool(d.cfg.Worker.Count, d.cfg.Worker.BufferSize, d.process)
	d.pool.Start(ctx)

	subID, ch := d.bus.Subscribe()
	d.subID = subID

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if !d.pool.Submit(ctx, evt) {
					return
				}
			}
		}
	}()
}

func (d *Dispatcher) process(ctx context.Context, evt AlertEvent) error {
	slog.Debug("processing alert event", "kind", evt.Kind, "alert_id", evt.AlertID)

	switch evt.Kind {
	case AlertCreated:
		if err := d.seedReliability(ctx, evt); err != nil {
			slog.Error("error seeding alert reliability", "alert_id", evt.AlertID, "error", err)
		}
	case AlertReported, AlertResolved:
		// Only these change the author's status counts. Help offers must
		// never touch the alert's score.
		if err := d.refreshReliability(ctx, evt); err != nil {
			slog.Error("error refreshing alert reliability", "alert_id", evt.AlertID, "error", err)
		}
	}

	if err := d.evaluateUnlocks(ctx, evt.AuthorID); err != nil {
		return err
	}
	if evt.ActorID != "" && evt.ActorID != evt.AuthorID {
		if err := d.evaluateUnlocks(ctx, evt.ActorID); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) evaluateUnlocks(ctx context.Context, userID string) error {
	granted, err := d.engine.EvaluateUnlocks(ctx, userID)
	if err != nil {
		slog.Error("error evaluating achievements", "user_id", userID, "error", err)
		return err
	}
	if len(granted) > 0 {
		slog.Info("achievements unlocked", "user_id", userID, "count", len(granted))
	}
	return nil
}

// seedReliability sets the initial reliability of a new alert from the
// author's track record blended with the content analysis, then dampened
// by the author's false-alarm risk.
func (d *Dispatcher) seedReliability(ctx context.Context, evt AlertEvent) error {
	alert, err := d.alerts.GetAlert(ctx, evt.AlertID)
	if err != nil {
		return err
	}

	authorScore := d.scorer.Score(ctx, evt.AuthorID)

	credibility := authorScore
	analysis, err := d.analyzer.Analyze(ctx, alert.Title, alert.Description, alert.Category)
	if err != nil {
		slog.Error("content analysis failed", "alert_id", evt.AlertID, "error", err)
	} else {
		credibility = analysis.Credibility
		if analysis.Suspicious {
			slog.Warn("suspicious alert content", "alert_id", evt.AlertID, "reason", analysis.Reason)
		}
	}

	risk := d.scorer.RiskScore(ctx, evt.AuthorID, time.Now())

	score := (authorScore + credibility) / 2
	score *= 1 - 0.5*risk

	return d.alerts.SetAlertReliability(ctx, evt.AlertID, score)
}

// refreshReliability recomputes the alert's score after a report or
// resolution changed the author's track record.
func (d *Dispatcher) refreshReliability(ctx context.Context, evt AlertEvent) error {
	score := d.scorer.Score(ctx, evt.AuthorID)
	return d.alerts.SetAlertReliability(ctx, evt.AlertID, score)
}

func (d *Dispatcher) Stop() {
	d.bus.Unsubscribe(d.subID)
	d.wg.Wait()
	d.pool.Stop()
	slog.Info("event dispatcher stopped")
}
