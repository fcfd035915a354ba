package sleep

import (
	"errors"
	"testing"
)

func TestScoreCountsLengthPreserved(t *testing.T) {
	algorithms := Algorithms()
	lengths := []int{1, 7, 10000}

	for _, algo := range algorithms {
		for _, n := range lengths {
			counts := make([]float64, n)
			series, err := ScoreCounts(algo, counts)
			if err != nil {
				t.Fatalf("%s with %d epochs: %v", algo, n, err)
			}
			if len(series.Scores) != n {
				t.Errorf("%s: output length = %d, want %d", algo, len(series.Scores), n)
			}
		}
	}
}

func TestScoreCountsEmptyInputFails(t *testing.T) {
	for _, algo := range Algorithms() {
		_, err := ScoreCounts(algo, nil)
		if !errors.Is(err, ErrEmptyInput) {
			t.Errorf("%s on empty input: error = %v, want ErrEmptyInput", algo, err)
		}
	}
}

func TestScoreCountsUnknownAlgorithm(t *testing.T) {
	if _, err := ScoreCounts("webster-1982", []float64{1, 2, 3}); err == nil {
		t.Error("expected unknown-algorithm error")
	}
}

func TestSadehQuietIsSleepActiveIsWake(t *testing.T) {
	quiet := make([]float64, 30)
	series, err := ScoreCounts("sadeh", quiet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range series.Scores {
		if s != Sleep {
			t.Fatalf("quiet epoch %d scored wake (PS=%v)", i, series.Confidence[i])
		}
	}

	active := make([]float64, 30)
	for i := range active {
		active[i] = 400
	}
	series, err = ScoreCounts("sadeh", active)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range series.Scores {
		if s != Wake {
			t.Fatalf("active epoch %d scored sleep (PS=%v)", i, series.Confidence[i])
		}
	}
}

func TestColeKripkeQuietIsSleepActiveIsWake(t *testing.T) {
	quiet := make([]float64, 30)
	series, err := ScoreCounts("cole-kripke", quiet)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, s := range series.Scores {
		if s != Sleep {
			t.Fatalf("quiet epoch %d scored wake (D=%v)", i, series.Confidence[i])
		}
	}

	active := make([]float64, 30)
	for i := range active {
		active[i] = 500
	}
	series, err = ScoreCounts("cole-kripke", active)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Interior epochs have full windows of high counts; D far above 1.
	for i := 4; i < len(series.Scores)-2; i++ {
		if series.Scores[i] != Wake {
			t.Fatalf("active epoch %d scored sleep (D=%v)", i, series.Confidence[i])
		}
	}
}

func TestColeKripkeRescaledVariant(t *testing.T) {
	counts := make([]float64, 20)
	for i := range counts {
		counts[i] = 100
	}
	original, err := ScoreCounts("cole-kripke", counts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rescaled, err := ScoreCounts("cole-kripke-rescaled", counts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The divide-by-100 variant sees counts of 1, under its threshold.
	if original.Scores[10] != Wake {
		t.Error("original variant should score high counts wake")
	}
	if rescaled.Scores[10] != Sleep {
		t.Error("rescaled variant should score the same counts sleep")
	}
}

func TestSleepMinutes(t *testing.T) {
	series := &ScoreSeries{Scores: []Score{Sleep, Sleep, Wake, Sleep}}
	if got := series.SleepMinutes(60); got != 3 {
		t.Errorf("SleepMinutes = %v, want 3", got)
	}
}
