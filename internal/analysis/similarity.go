package analysis

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// MaxRecommendations caps the peer list returned by Recommend.
const MaxRecommendations = 5

// Recommend ranks peers of targetID by cosine similarity of their binarized skill sets.
func Recommend(targetID int64, population []UserProfile) ([]Match, error) {
	// fewer than two users leaves nobody to recommend, known target or not
	targetIdx := -1
	for i, u := range population {
		if u.ID == targetID {
			targetIdx = i
			break
		}
	}
	if len(population) < 2 {
		return []Match{}, nil
	}
	if targetIdx < 0 {
		return nil, ErrNotInPopulation
	}

	vocab := skillVocabulary(population)
	if len(vocab) == 0 {
		return []Match{}, nil
	}

	vectors := make([][]float64, len(population))
	for i, u := range population {
		vectors[i] = binarize(u.Skills, vocab)
	}

	type candidate struct {
		idx int
		sim float64
	}
	candidates := make([]candidate, 0, len(population)-1)
	target := vectors[targetIdx]
	for i := range population {
		if i == targetIdx {
			continue
		}
		sim := cosineSimilarity(target, vectors[i])
		if sim > 0 {
			candidates = append(candidates, candidate{idx: i, sim: sim})
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].sim > candidates[b].sim
	})
	if len(candidates) > MaxRecommendations {
		candidates = candidates[:MaxRecommendations]
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{
			UserID: population[c.idx].ID,
			Score:  clip(roundTo(c.sim*100, 2), 0, 100),
		}
	}
	return matches, nil
}

// skillVocabulary maps each distinct normalized skill to a column index.
func skillVocabulary(population []UserProfile) map[string]int {
	vocab := make(map[string]int)
	for _, u := range population {
		for _, s := range NormalizeTokens(u.Skills) {
			if _, ok := vocab[s]; !ok {
				vocab[s] = len(vocab)
			}
		}
	}
	return vocab
}

func binarize(skills []string, vocab map[string]int) []float64 {
	v := make([]float64, len(vocab))
	for _, s := range NormalizeTokens(skills) {
		if idx, ok := vocab[s]; ok {
			v[idx] = 1
		}
	}
	return v
}

// cosineSimilarity is 0 when either vector has zero norm.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	normA, normB := floats.Norm(a, 2), floats.Norm(b, 2)
	if normA == 0 || normB == 0 {
		return 0
	}
	return floats.Dot(a, b) / (normA * normB)
}
