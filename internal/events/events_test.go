package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/communiconnect/insights/internal/config"
	"github.com/communiconnect/insights/internal/gamification"
	"github.com/communiconnect/insights/internal/models"
	"github.com/communiconnect/insights/internal/moderation"
	"github.com/communiconnect/insights/internal/repository"
	"github.com/communiconnect/insights/internal/scoring"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	id1, ch1 := bus.Subscribe()
	_, ch2 := bus.Subscribe()

	if bus.SubscriberCount() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", bus.SubscriberCount())
	}

	evt := AlertEvent{Kind: AlertCreated, AlertID: "a1", AuthorID: "u1", At: time.Now()}
	bus.Publish(evt)

	for _, ch := range []chan AlertEvent{ch1, ch2} {
		select {
		case got := <-ch:
			if got.AlertID != "a1" || got.Kind != AlertCreated {
				t.Errorf("unexpected event: %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	bus.Unsubscribe(id1)
	if bus.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber after unsubscribe, got %d", bus.SubscriberCount())
	}

	// Channel of the removed subscriber is closed.
	if _, ok := <-ch1; ok {
		t.Error("expected closed channel after unsubscribe")
	}
}

func TestBus_SlowSubscriberSkipped(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	_, ch := bus.Subscribe()

	// Fill the subscriber buffer, then publish one more. Publish must not
	// block even though nobody is draining.
	for i := 0; i < cap(ch)+10; i++ {
		bus.Publish(AlertEvent{Kind: AlertReported, AlertID: "a"})
	}

	if len(ch) != cap(ch) {
		t.Errorf("expected full buffer of %d, got %d", cap(ch), len(ch))
	}
}

type stubStore struct {
	mu          sync.Mutex
	alerts      map[string]*models.Alert
	counts      map[string]repository.StatusCounts
	history     []models.Alert
	reliability map[string]float64
	unlocked    map[string]bool
	helpCount   int
	avgRel      float64
	level       *models.UserLevel
}

func newStubStore() *stubStore {
	return &stubStore{
		alerts:      make(map[string]*models.Alert),
		counts:      make(map[string]repository.StatusCounts),
		reliability: make(map[string]float64),
		unlocked:    make(map[string]bool),
	}
}

func (s *stubStore) AddAlert(ctx context.Context, a *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts[a.ID] = a
	return nil
}

func (s *stubStore) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alerts[id], nil
}

func (s *stubStore) UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus, resolvedAt *time.Time) error {
	return nil
}

func (s *stubStore) SetAlertReliability(ctx context.Context, id string, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reliability[id] = score
	return nil
}

func (s *stubStore) ListAlertsByAuthor(ctx context.Context, authorID string) ([]models.Alert, error) {
	return s.history, nil
}

func (s *stubStore) AuthorStatusCounts(ctx context.Context, authorID string) (repository.StatusCounts, error) {
	return s.counts[authorID], nil
}

func (s *stubStore) hasUnlock(userID string, typ models.AchievementType) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked[userID+"/"+string(typ)]
}

func (s *stubStore) AddReport(ctx context.Context, r *models.AlertReport) error { return nil }

func (s *stubStore) ReportCounts(ctx context.Context, alertID string) (int, int, error) {
	return 0, 0, nil
}

func (s *stubStore) AddHelpOffer(ctx context.Context, h *models.HelpOffer) error { return nil }

func (s *stubStore) InsertAchievement(ctx context.Context, a *models.Achievement) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := a.UserID + "/" + string(a.Type)
	if s.unlocked[key] {
		return false, nil
	}
	s.unlocked[key] = true
	return true, nil
}

func (s *stubStore) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	return nil, nil
}

func (s *stubStore) SumAchievementPoints(ctx context.Context, userID string) (int, error) {
	return 0, nil
}

func (s *stubStore) UpsertUserLevel(ctx context.Context, lvl *models.UserLevel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = lvl
	return nil
}

func (s *stubStore) GetUserLevel(ctx context.Context, userID string) (*models.UserLevel, error) {
	return s.level, nil
}

func (s *stubStore) HelpOfferCountByUser(ctx context.Context, userID string) (int, error) {
	return s.helpCount, nil
}

func (s *stubStore) AvgAlertReliability(ctx context.Context, authorID string) (float64, error) {
	return s.avgRel, nil
}

func (s *stubStore) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Worker: config.WorkerConfig{Count: 2, BufferSize: 16},
	}
}

func TestDispatcher_AlertCreatedPipeline(t *testing.T) {
	store := newStubStore()
	store.counts["u1"] = repository.StatusCounts{Total: 5, Confirmed: 5}
	store.alerts["a1"] = &models.Alert{
		ID:          "a1",
		AuthorID:    "u1",
		Category:    models.CategoryFlood,
		Title:       "Inondation rue principale",
		Description: "L'eau monte rapidement près du marché, environ 40 cm devant la pharmacie centrale.",
	}

	bus := NewBus()
	scorer := scoring.NewScorer(store)
	engine := gamification.NewEngine(store, store)

	d := NewDispatcher(testConfig(), bus, store, scorer, engine, moderation.NewHeuristicAnalyzer())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	bus.Publish(AlertEvent{Kind: AlertCreated, AlertID: "a1", AuthorID: "u1", ActorID: "u1", At: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		_, scored := store.reliability["a1"]
		store.mu.Unlock()
		if scored {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	d.Stop()
	bus.Close()

	store.mu.Lock()
	defer store.mu.Unlock()

	score, ok := store.reliability["a1"]
	if !ok {
		t.Fatal("expected alert reliability to be seeded")
	}
	if score < 0 || score > 100 {
		t.Errorf("seeded score out of range: %f", score)
	}
	if !store.unlocked["u1/"+string(models.AchievementFirstAlert)] {
		t.Error("expected first_alert achievement to unlock")
	}
}

func TestDispatcher_ReportRefreshesScore(t *testing.T) {
	store := newStubStore()
	store.counts["u1"] = repository.StatusCounts{Total: 10, Confirmed: 9, Resolved: 5}

	bus := NewBus()
	scorer := scoring.NewScorer(store)
	engine := gamification.NewEngine(store, store)

	d := NewDispatcher(testConfig(), bus, store, scorer, engine, moderation.NewHeuristicAnalyzer())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	bus.Publish(AlertEvent{Kind: AlertReported, AlertID: "a2", AuthorID: "u1", ActorID: "voter", At: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		_, scored := store.reliability["a2"]
		store.mu.Unlock()
		if scored {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	d.Stop()
	bus.Close()

	store.mu.Lock()
	defer store.mu.Unlock()

	if got := store.reliability["a2"]; got != 100 {
		t.Errorf("expected refreshed score 100, got %f", got)
	}
}

func TestDispatcher_ReportScoresAuthorNotReporter(t *testing.T) {
	store := newStubStore()
	store.counts["author"] = repository.StatusCounts{Total: 10, Confirmed: 9, Resolved: 5}
	store.counts["reporter"] = repository.StatusCounts{Total: 4, FalseAlarms: 4}

	bus := NewBus()
	scorer := scoring.NewScorer(store)
	engine := gamification.NewEngine(store, store)

	d := NewDispatcher(testConfig(), bus, store, scorer, engine, moderation.NewHeuristicAnalyzer())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	bus.Publish(AlertEvent{Kind: AlertReported, AlertID: "a1", AuthorID: "author", ActorID: "reporter", At: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		store.mu.Lock()
		_, scored := store.reliability["a1"]
		store.mu.Unlock()
		if scored {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	d.Stop()
	bus.Close()

	store.mu.Lock()
	defer store.mu.Unlock()

	// The alert's score comes from its author's history. The reporter's
	// all-false-alarm record must not leak into it.
	if got := store.reliability["a1"]; got != 100 {
		t.Errorf("expected author-derived score 100, got %f", got)
	}
}

func TestDispatcher_HelpOfferLeavesAlertScoreAlone(t *testing.T) {
	store := newStubStore()
	store.counts["author"] = repository.StatusCounts{Total: 10, Confirmed: 10}
	store.counts["helper"] = repository.StatusCounts{Total: 4, FalseAlarms: 4}
	store.helpCount = 1

	bus := NewBus()
	scorer := scoring.NewScorer(store)
	engine := gamification.NewEngine(store, store)

	d := NewDispatcher(testConfig(), bus, store, scorer, engine, moderation.NewHeuristicAnalyzer())

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	bus.Publish(AlertEvent{Kind: AlertHelpOffered, AlertID: "a1", AuthorID: "author", ActorID: "helper", At: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.hasUnlock("helper", models.AchievementFirstHelp) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	d.Stop()
	bus.Close()

	store.mu.Lock()
	defer store.mu.Unlock()

	// Help offers don't change the author's outcome counts, so the
	// alert's stored score must not be rewritten at all.
	if _, touched := store.reliability["a1"]; touched {
		t.Errorf("help offer rewrote alert reliability to %f", store.reliability["a1"])
	}
	if !store.unlocked["helper/"+string(models.AchievementFirstHelp)] {
		t.Error("expected first_help achievement for the helper")
	}
}
