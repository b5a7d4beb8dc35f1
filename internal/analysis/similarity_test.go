package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func profile(id int64, skills ...string) UserProfile {
	return UserProfile{ID: id, Name: "user", Skills: skills}
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name       string
		target     int64
		population []UserProfile
		expected   []Match
	}{
		{
			name:   "two users sharing one of two skills",
			target: 2,
			population: []UserProfile{
				profile(1, "python", "sql"),
				profile(2, "python"),
			},
			expected: []Match{{UserID: 1, Score: 70.71}},
		},
		{
			name:       "single user population is empty",
			target:     1,
			population: []UserProfile{profile(1, "python")},
			expected:   []Match{},
		},
		{
			name:   "no skills anywhere is empty",
			target: 1,
			population: []UserProfile{
				profile(1),
				profile(2),
				profile(3),
			},
			expected: []Match{},
		},
		{
			name:   "candidates without overlap are dropped",
			target: 1,
			population: []UserProfile{
				profile(1, "react"),
				profile(2, "python"),
				profile(3, "react", "aws"),
			},
			expected: []Match{{UserID: 3, Score: 70.71}},
		},
		{
			name:   "tokens are compared case-insensitively",
			target: 1,
			population: []UserProfile{
				profile(1, " Python "),
				profile(2, "python"),
			},
			expected: []Match{{UserID: 2, Score: 100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := Recommend(tt.target, tt.population)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, matches)
		})
	}
}

func TestRecommend_UnknownTarget(t *testing.T) {
	_, err := Recommend(99, []UserProfile{profile(1, "python"), profile(2, "python")})
	assert.ErrorIs(t, err, ErrNotInPopulation)
}

func TestRecommend_TinyPopulation(t *testing.T) {
	tests := []struct {
		name       string
		target     int64
		population []UserProfile
	}{
		{"empty", 1, nil},
		{"only the target", 1, []UserProfile{profile(1, "python")}},
		{"one other user", 1, []UserProfile{profile(2, "python")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := Recommend(tt.target, tt.population)
			require.NoError(t, err)
			assert.Empty(t, matches)
		})
	}
}

func TestRecommend_StableTopFive(t *testing.T) {
	population := []UserProfile{profile(1, "go")}
	for id := int64(2); id <= 9; id++ {
		population = append(population, profile(id, "go"))
	}

	matches, err := Recommend(1, population)
	require.NoError(t, err)
	require.Len(t, matches, MaxRecommendations)

	for i, m := range matches {
		assert.Equal(t, int64(i+2), m.UserID, "ties keep population order")
		assert.Equal(t, 100.0, m.Score)
	}
}

func TestRecommend_Properties(t *testing.T) {
	population := []UserProfile{
		profile(1, "python", "sql", "docker"),
		profile(2, "python"),
		profile(3, "sql", "aws"),
		profile(4, "java"),
		profile(5, "docker", "python", "sql"),
		profile(6),
		profile(7, "react", "sql"),
	}
	targetSkills := map[string]bool{"python": true, "sql": true, "docker": true}

	matches, err := Recommend(1, population)
	require.NoError(t, err)

	previous := 101.0
	for _, m := range matches {
		assert.NotEqual(t, int64(1), m.UserID)
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 100.0)
		assert.LessOrEqual(t, m.Score, previous)
		previous = m.Score

		shares := false
		for _, s := range population[m.UserID-1].Skills {
			if targetSkills[s] {
				shares = true
			}
		}
		assert.True(t, shares, "user %d shares no skill with target", m.UserID)
	}
	assert.Equal(t, int64(5), matches[0].UserID)
}

func TestCosineSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 1}, []float64{1, 1}), 1e-12)
}
