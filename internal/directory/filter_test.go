package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medicare-hms/portal-booking/internal/reputation"
)

func testRoster() []Doctor {
	return []Doctor{
		{ID: 1, Name: "Dr. Asha Rao", Specialization: "Cardiology", Experience: 5, ConsultationFee: 500, Active: true},
		{ID: 2, Name: "Dr. Brian Okafor", Specialization: "Dermatology", Experience: 10, ConsultationFee: 800, Active: true},
		{ID: 3, Name: "Dr. Carmen Ruiz", Specialization: "Cardiology", Experience: 16, ConsultationFee: 1600, Active: true},
		{ID: 4, Name: "Dr. Dana Marsh", Specialization: "Pediatrics", Experience: 2, ConsultationFee: 300, Active: true},
	}
}

func TestFilterNeutrality(t *testing.T) {
	roster := testRoster()
	got := Filter(roster, Criteria{})
	assert.Equal(t, roster, got, "empty criteria must preserve membership and order")
}

func TestFilterIdempotence(t *testing.T) {
	criteria := []Criteria{
		{},
		{Specialization: "Cardiology"},
		{Experience: Experience5To10, Fee: Fee0To500},
		{NameQuery: "ru", MinRating: 3.5},
	}
	roster := testRoster()
	for _, c := range criteria {
		once := Filter(roster, c)
		twice := Filter(once, c)
		assert.Equal(t, once, twice, "criteria %+v", c)
	}
}

func TestFilterSpecializationExactMatch(t *testing.T) {
	got := Filter(testRoster(), Criteria{Specialization: "Cardiology"})
	if assert.Len(t, got, 2) {
		assert.Equal(t, int64(1), got[0].ID)
		assert.Equal(t, int64(3), got[1].ID)
	}
}

func TestFilterExperienceBucketBoundaries(t *testing.T) {
	roster := []Doctor{
		{ID: 1, Experience: 5},
		{ID: 2, Experience: 6},
		{ID: 3, Experience: 10},
		{ID: 4, Experience: 11},
		{ID: 5, Experience: 15},
		{ID: 6, Experience: 16},
	}
	tests := []struct {
		bucket  ExperienceBucket
		wantIDs []int64
	}{
		{Experience0To5, []int64{1}},
		{Experience5To10, []int64{2, 3}},
		{Experience10To15, []int64{4, 5}},
		{Experience15Plus, []int64{6}},
	}
	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			got := Filter(roster, Criteria{Experience: tt.bucket})
			ids := make([]int64, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterFeeBucketBoundaries(t *testing.T) {
	roster := []Doctor{
		{ID: 1, ConsultationFee: 500},
		{ID: 2, ConsultationFee: 500.50},
		{ID: 3, ConsultationFee: 1000},
		{ID: 4, ConsultationFee: 1500},
		{ID: 5, ConsultationFee: 1500.01},
	}
	tests := []struct {
		bucket  FeeBucket
		wantIDs []int64
	}{
		{Fee0To500, []int64{1}},
		{Fee500To1000, []int64{2, 3}},
		{Fee1000To1500, []int64{4}},
		{Fee1500Plus, []int64{5}},
	}
	for _, tt := range tests {
		t.Run(string(tt.bucket), func(t *testing.T) {
			got := Filter(roster, Criteria{Fee: tt.bucket})
			ids := make([]int64, 0, len(got))
			for _, d := range got {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilterNameQueryCaseInsensitiveContainment(t *testing.T) {
	roster := testRoster()
	got := Filter(roster, Criteria{NameQuery: "OKAF"})
	if assert.Len(t, got, 1) {
		assert.Equal(t, "Dr. Brian Okafor", got[0].Name)
	}
	// substring, not prefix
	got = Filter(roster, Criteria{NameQuery: "ruiz"})
	if assert.Len(t, got, 1) {
		assert.Equal(t, int64(3), got[0].ID)
	}
}

func TestFilterMinRatingUsesEstimate(t *testing.T) {
	roster := testRoster()
	// Pick a threshold that splits the roster by derived rating.
	threshold := reputation.EstimateFor(2).Rating
	got := Filter(roster, Criteria{MinRating: threshold})
	for _, d := range got {
		assert.GreaterOrEqual(t, reputation.EstimateFor(d.ID).Rating, threshold)
	}
	// Every excluded doctor must actually fall below the threshold.
	kept := make(map[int64]bool, len(got))
	for _, d := range got {
		kept[d.ID] = true
	}
	for _, d := range roster {
		if !kept[d.ID] {
			assert.Less(t, reputation.EstimateFor(d.ID).Rating, threshold)
		}
	}
}

func TestFilterCombinesWithAND(t *testing.T) {
	got := Filter(testRoster(), Criteria{Specialization: "Cardiology", Fee: Fee1500Plus})
	if assert.Len(t, got, 1) {
		assert.Equal(t, int64(3), got[0].ID)
	}
}

func TestFilterNoMatchesReturnsEmpty(t *testing.T) {
	got := Filter(testRoster(), Criteria{Specialization: "Neurology"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterDoesNotMutateInput(t *testing.T) {
	roster := testRoster()
	Filter(roster, Criteria{Specialization: "Cardiology"})
	assert.Equal(t, testRoster(), roster)
}

func TestCriteriaIsZero(t *testing.T) {
	assert.True(t, Criteria{}.IsZero())
	assert.False(t, Criteria{NameQuery: "a"}.IsZero())
	assert.False(t, Criteria{MinRating: 4}.IsZero())
}

func TestExperienceTier(t *testing.T) {
	tests := []struct {
		years int
		want  string
	}{
		{0, "Doctor"}, {4, "Doctor"}, {5, "Experienced"}, {9, "Experienced"},
		{10, "Senior"}, {14, "Senior"}, {15, "Expert"}, {30, "Expert"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExperienceTier(tt.years), "years=%d", tt.years)
	}
}
