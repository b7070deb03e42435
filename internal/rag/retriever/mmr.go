package retriever

import (
	"math"

	"github.com/akolanti/QuizRAG/internal/rag/vectorDB"
)

// MMR picks up to k candidates, each time taking the one that maximizes
// lambda*relevance - (1-lambda)*max similarity to what is already picked.
// Relevance is the candidate's search score. Ties go to the earlier candidate; a NaN score ranks last.
func MMR(candidates []vectorDB.Match, k int, lambda float64) []vectorDB.Match {
	if k <= 0 || len(candidates) == 0 {
		return []vectorDB.Match{}
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	picked := make([]vectorDB.Match, 0, k)
	used := make([]bool, len(candidates))
	// maxSim[i] is the highest similarity of candidate i to any picked candidate
	maxSim := make([]float64, len(candidates))

	for len(picked) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i, c := range candidates {
			if used[i] {
				continue
			}
			redundancy := 0.0
			if len(picked) > 0 {
				redundancy = maxSim[i]
			}
			score := lambda*c.Score - (1-lambda)*redundancy
			if math.IsNaN(score) {
				score = math.Inf(-1)
			}
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}

		used[best] = true
		picked = append(picked, candidates[best])
		for i, c := range candidates {
			if used[i] {
				continue
			}
			sim := vectorDB.CosineSimilarity(c.Vector, candidates[best].Vector)
			if len(picked) == 1 || sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}
	return picked
}
