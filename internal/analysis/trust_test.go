package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustScore(t *testing.T) {
	tests := []struct {
		name     string
		features UserFeatures
		flagged  bool
		expected int
	}{
		{
			name:     "fresh user without skills",
			features: UserFeatures{},
			expected: 30,
		},
		{
			name:     "skills and received messages add up",
			features: UserFeatures{SkillCount: 3, MessagesReceived: 4},
			expected: 73,
		},
		{
			name:     "events push the score to the ceiling",
			features: UserFeatures{SkillCount: 2, EventsCreated: 5},
			expected: 100,
		},
		{
			name:     "spam without engagement is penalised",
			features: UserFeatures{SkillCount: 2, MessagesSent: 11},
			expected: 50,
		},
		{
			name:     "spam threshold is strictly greater than ten",
			features: UserFeatures{SkillCount: 2, MessagesSent: 10},
			expected: 60,
		},
		{
			name:     "any received message lifts the spam penalty",
			features: UserFeatures{SkillCount: 2, MessagesSent: 30, MessagesReceived: 1},
			expected: 62,
		},
		{
			name:     "flagged ghost account floors at zero",
			features: UserFeatures{MessagesSent: 20},
			flagged:  true,
			expected: 0,
		},
		{
			name:     "flag subtracts fifty",
			features: UserFeatures{SkillCount: 4},
			flagged:  true,
			expected: 20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrustScore(tt.features, tt.flagged)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, TrustScore(tt.features, tt.flagged), "score must be idempotent")
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, 100)
		})
	}
}

func TestExtractUserFeatures(t *testing.T) {
	u := UserProfile{
		Skills:           []string{"python", "sql"},
		Interests:        []string{"hackathons"},
		EventsCreated:    3,
		MessagesSent:     7,
		MessagesReceived: 2,
	}

	assert.Equal(t, UserFeatures{
		SkillCount:       2,
		InterestCount:    1,
		EventsCreated:    3,
		MessagesSent:     7,
		MessagesReceived: 2,
	}, ExtractUserFeatures(u))
	assert.Equal(t, [4]float64{2, 3, 1, 7}, ExtractAnomalyFeatures(u).Vector())
}
