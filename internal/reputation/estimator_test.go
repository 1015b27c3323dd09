package reputation

import (
	"math"
	"testing"
)

func TestEstimateForDeterministic(t *testing.T) {
	for _, id := range []int64{1, 7, 42, 999, 12345} {
		first := EstimateFor(id)
		for i := 0; i < 100; i++ {
			if got := EstimateFor(id); got != first {
				t.Fatalf("EstimateFor(%d) not stable: first=%+v got=%+v", id, first, got)
			}
		}
	}
}

func TestEstimateForRanges(t *testing.T) {
	for id := int64(1); id <= 2000; id++ {
		est := EstimateFor(id)
		if est.Rating < 3.5 || est.Rating > 5.0 {
			t.Fatalf("rating out of range for id %d: %v", id, est.Rating)
		}
		// 0.1 resolution
		scaled := est.Rating * 10
		if math.Abs(scaled-math.Round(scaled)) > 1e-9 {
			t.Fatalf("rating not at 0.1 resolution for id %d: %v", id, est.Rating)
		}
		if est.ReviewCount < 50 || est.ReviewCount >= 250 {
			t.Fatalf("review count out of range for id %d: %d", id, est.ReviewCount)
		}
		if est.PatientCount < 100 || est.PatientCount >= 1000 {
			t.Fatalf("patient count out of range for id %d: %d", id, est.PatientCount)
		}
	}
}

func TestEstimateForKnownValues(t *testing.T) {
	// Figures the original portal rendered for these doctors; they are a
	// published contract, not an implementation detail.
	tests := []struct {
		id      int64
		rating  float64
		reviews int
	}{
		{1, 4.2, 57},   // seed 7
		{7, 3.9, 99},   // seed 49
		{10, 4.5, 120}, // seed 70
	}
	for _, tt := range tests {
		est := EstimateFor(tt.id)
		if math.Abs(est.Rating-tt.rating) > 1e-9 {
			t.Errorf("id %d: rating = %v, want %v", tt.id, est.Rating, tt.rating)
		}
		if est.ReviewCount != tt.reviews {
			t.Errorf("id %d: reviews = %d, want %d", tt.id, est.ReviewCount, tt.reviews)
		}
	}
}
