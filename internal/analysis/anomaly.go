package analysis

import "context"

// MinDetectionPopulation is the smallest population the detector will fit.
const MinDetectionPopulation = 5

const flagSpamSentThreshold = 5

// DetectAnomalies fits an isolation forest over the population and decides a flag per user.
// Populations below MinDetectionPopulation yield an Insufficient report with nobody flagged.
func DetectAnomalies(ctx context.Context, population []UserProfile, cfg ForestConfig) (*AnomalyReport, error) {
	if len(population) < MinDetectionPopulation {
		return &AnomalyReport{Insufficient: true, Decisions: []AnomalyDecision{}}, nil
	}

	features := make([]AnomalyFeatures, len(population))
	X := make([][]float64, len(population))
	for i, u := range population {
		features[i] = ExtractAnomalyFeatures(u)
		v := features[i].Vector()
		X[i] = v[:]
	}

	forest, err := FitIsolationForest(ctx, X, cfg)
	if err != nil {
		return nil, err
	}

	report := &AnomalyReport{Decisions: make([]AnomalyDecision, len(population))}
	for i, u := range population {
		score := forest.AnomalyScore(X[i])
		outlier := -score < forest.Offset()
		flagged, reason := flagPolicy(outlier, features[i])

		report.Decisions[i] = AnomalyDecision{
			UserID:     u.ID,
			Outlier:    outlier,
			Flagged:    flagged,
			Reason:     reason,
			Score:      score,
			TrustScore: TrustScore(ExtractUserFeatures(u), flagged),
		}
		if flagged {
			report.Flagged++
		}
	}
	return report, nil
}

// flagPolicy evaluates the branches in order; the last branch catches every remaining outlier.
func flagPolicy(outlier bool, f AnomalyFeatures) (bool, FlagReason) {
	switch {
	case outlier && f.SkillCount == 0:
		return true, FlagNoSkills
	case outlier && f.MessagesSent > flagSpamSentThreshold:
		return true, FlagMessageSpam
	case outlier:
		return true, FlagOutlier
	default:
		return false, FlagNone
	}
}
