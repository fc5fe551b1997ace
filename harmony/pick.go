package harmony

import (
	"math/rand"
	"sort"

	"github.com/jsphweid/harmonybeat/chord"
	"github.com/jsphweid/harmonybeat/util"
)

// VoiceLeadingWeights orders candidates by distance from last, closest first,
// and weights them max(1, 5-rank). Equal distances keep input order.
func VoiceLeadingWeights(candidates []chord.Note, last chord.Note) ([]chord.Note, []int) {
	ranked := make([]chord.Note, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return chord.Distance(ranked[i], last) < chord.Distance(ranked[j], last)
	})
	weights := make([]int, len(ranked))
	for i := range ranked {
		weights[i] = util.Max(1, 5-i)
	}
	return ranked, weights
}

// WeightedPick draws one candidate as if each were repeated weight times in
// a pool picked from uniformly. Nil weights means every weight is 1.
func WeightedPick[T any](candidates []T, weights []int, rng *rand.Rand) T {
	if len(candidates) == 0 {
		panic("harmony: WeightedPick with no candidates")
	}
	if weights == nil {
		return candidates[rng.Intn(len(candidates))]
	}
	r := rng.Intn(int(util.Sum(weights)))
	for i, w := range weights {
		if r < w {
			return candidates[i]
		}
		r -= w
	}
	return candidates[len(candidates)-1]
}
