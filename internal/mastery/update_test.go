package mastery

import (
	"math"
	"testing"
	"time"
)

var t0 = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestApply_FiveCorrectFromZero(t *testing.T) {
	var p StudyProgress
	prev := 0.0
	for i := 0; i < 5; i++ {
		p = Apply(p, true, t0)
		if p.MasteryLevel <= prev || p.MasteryLevel > 100 {
			t.Fatalf("step %d: mastery %v not increasing within bounds", i, p.MasteryLevel)
		}
		prev = p.MasteryLevel
	}
	if math.Abs(p.MasteryLevel-83.193) > 0.001 {
		t.Errorf("after 5 correct mastery = %.4f, want ~83.193", p.MasteryLevel)
	}
	if p.TimesStudied != 5 || p.TimesCorrect != 5 || p.TimesIncorrect != 0 {
		t.Errorf("unexpected counters %+v", p)
	}
}

func TestApply_NeverExceedsBounds(t *testing.T) {
	var p StudyProgress
	for i := 0; i < 200; i++ {
		p = Apply(p, true, t0)
	}
	if p.MasteryLevel > 100 {
		t.Fatalf("mastery exceeded 100: %v", p.MasteryLevel)
	}
	for i := 0; i < 200; i++ {
		p = Apply(p, false, t0)
	}
	if p.MasteryLevel < 0 {
		t.Fatalf("mastery below 0: %v", p.MasteryLevel)
	}
}

func TestApply_IncorrectDecreases(t *testing.T) {
	p := StudyProgress{MasteryLevel: 50}
	p = Apply(p, false, t0)
	if p.MasteryLevel != 35 {
		t.Errorf("mastery = %v, want 35", p.MasteryLevel)
	}
	if p.TimesIncorrect != 1 {
		t.Errorf("incorrect counter = %d", p.TimesIncorrect)
	}

	zero := Apply(StudyProgress{}, false, t0)
	if zero.MasteryLevel != 0 {
		t.Errorf("mastery at 0 should stay 0, got %v", zero.MasteryLevel)
	}
}

func TestApply_Schedule(t *testing.T) {
	tests := []struct {
		name    string
		start   float64
		correct bool
		days    int
	}{
		{"zero stays due now", 0, false, 0},
		{"first correct", 0, true, 2},
		{"high mastery", 90, true, 5},
		{"decay to 14", 20, false, 1},
		{"already full", 100, true, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Apply(StudyProgress{MasteryLevel: tt.start}, tt.correct, t0)
			if !p.LastStudied.Equal(t0) {
				t.Errorf("lastStudied = %v", p.LastStudied)
			}
			if want := t0.AddDate(0, 0, tt.days); !p.NextReview.Equal(want) {
				t.Errorf("nextReview = %v, want %v", p.NextReview, want)
			}
			if p.NextReview.Before(*p.LastStudied) {
				t.Error("nextReview before lastStudied")
			}
		})
	}
}

func TestAggregateAndSummarize(t *testing.T) {
	cards := []Flashcard{
		{ID: "a", Progress: StudyProgress{TimesStudied: 4, TimesCorrect: 3, TimesIncorrect: 1, MasteryLevel: 85}},
		{ID: "b", Progress: StudyProgress{TimesStudied: 2, TimesCorrect: 1, TimesIncorrect: 1, MasteryLevel: 40}},
		{ID: "c", Progress: StudyProgress{TimesStudied: 1, TimesIncorrect: 1, MasteryLevel: 39.9}},
		{ID: "d"},
	}

	s := Aggregate(cards)
	if s.TotalStudied != 7 || s.TotalCorrect != 4 || s.TotalIncorrect != 3 {
		t.Errorf("unexpected totals %+v", s)
	}
	if math.Abs(s.AverageMastery-41.225) > 1e-9 {
		t.Errorf("average mastery = %v", s.AverageMastery)
	}

	p := summarize("c1", cards)
	if p.TotalCards != 4 || p.Mastered != 1 || p.Learning != 1 || p.New != 2 {
		t.Errorf("unexpected buckets %+v", p)
	}
	if math.Abs(p.Accuracy-4.0/7.0) > 1e-9 {
		t.Errorf("accuracy = %v", p.Accuracy)
	}

	empty := summarize("c1", nil)
	if empty.Accuracy != 0 || empty.AverageMastery != 0 {
		t.Errorf("empty course should be all zeros, got %+v", empty)
	}
}
