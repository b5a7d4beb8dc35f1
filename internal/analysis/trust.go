package analysis

const (
	trustBase             = 50
	trustPerSkill         = 5
	trustPerEvent         = 10
	trustPerReceived      = 2
	spamSentThreshold     = 10
	spamPenalty           = 10
	noSkillsPenalty       = 20
	anomalyFlaggedPenalty = 50
)

// TrustScore recomputes the reputation score from scratch. It never reads the previous score.
func TrustScore(f UserFeatures, flagged bool) int {
	score := trustBase
	score += f.SkillCount * trustPerSkill
	score += f.EventsCreated * trustPerEvent
	score += f.MessagesReceived * trustPerReceived

	if f.MessagesSent > spamSentThreshold && f.MessagesReceived == 0 {
		score -= spamPenalty
	}
	if f.SkillCount == 0 {
		score -= noSkillsPenalty
	}
	if flagged {
		score -= anomalyFlaggedPenalty
	}

	return clampInt(score, 0, 100)
}
