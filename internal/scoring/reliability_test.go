package scoring

import (
	"testing"

	"github.com/communiconnect/insights/internal/repository"
)

func TestScoreFromCounts_NoHistory(t *testing.T) {
	got := ScoreFromCounts(repository.StatusCounts{})
	if got != 50.0 {
		t.Errorf("expected neutral 50.0 for empty history, got %v", got)
	}
}

func TestScoreFromCounts_Scenario(t *testing.T) {
	// 10 alerts, 9 confirmed, 0 false alarms, 5 resolved:
	// base=100, bonus=27+10=37, capped to 100, volume bonus recapped to 100.
	got := ScoreFromCounts(repository.StatusCounts{
		Total:     10,
		Confirmed: 9,
		Resolved:  5,
	})
	if got != 100.0 {
		t.Errorf("expected 100.0, got %v", got)
	}
}

func TestScoreFromCounts_FalseAlarmsLowerScore(t *testing.T) {
	clean := ScoreFromCounts(repository.StatusCounts{Total: 5, Confirmed: 2})
	noisy := ScoreFromCounts(repository.StatusCounts{Total: 5, Confirmed: 2, FalseAlarms: 3})
	if noisy >= clean {
		t.Errorf("expected false alarms to lower score: clean=%v noisy=%v", clean, noisy)
	}
}

func TestScoreFromCounts_MonotonicInConfirmations(t *testing.T) {
	prev := -1.0
	for confirmed := 0; confirmed <= 4; confirmed++ {
		got := ScoreFromCounts(repository.StatusCounts{
			Total:       8,
			Confirmed:   confirmed,
			FalseAlarms: 4,
		})
		if got < prev {
			t.Errorf("score decreased as confirmations grew: %v -> %v at confirmed=%d", prev, got, confirmed)
		}
		prev = got
	}
}

func TestScoreFromCounts_AllFalseAlarms(t *testing.T) {
	got := ScoreFromCounts(repository.StatusCounts{Total: 4, FalseAlarms: 4})
	if got != 0.0 {
		t.Errorf("expected 0.0 for all false alarms, got %v", got)
	}
}

func TestScoreFromCounts_NeverAbove100(t *testing.T) {
	got := ScoreFromCounts(repository.StatusCounts{
		Total:     60,
		Confirmed: 60,
		Resolved:  60,
	})
	if got > 100 {
		t.Errorf("score exceeded 100: %v", got)
	}
	if got != 100 {
		t.Errorf("expected perfect record to score 100, got %v", got)
	}
}
