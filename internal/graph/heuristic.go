package graph

// selectHeuristic implements the diversity-aware neighbor selector
// (§4.6.3): walk candidates in descending score order, accepting c iff
// it scores at least as well against target as it does against every
// already-accepted neighbor x. This prunes candidates that are only
// "close" because they cluster near an already-chosen neighbor, rather
// than because they cover a distinct direction from target.
//
// When ExtendCandidates is set and fewer than cap candidates were
// accepted, the rejected ones are appended back in score order to fill
// the remaining slots, since a pruned-but-otherwise-fine neighbor beats
// an empty slot.
func (g *Layers) selectHeuristic(target uint32, candidates []Candidate, cap int, scorer Scorer, vectors VectorSource) []Candidate {
	if _, ok := vectors.Get(target); !ok {
		return topByScore(candidates, cap)
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sortCandidates(ordered)

	selected := make([]Candidate, 0, cap)
	selectedVecs := make([][]float32, 0, cap)
	var rejected []Candidate

	for _, c := range ordered {
		if len(selected) >= cap {
			break
		}

		cVec, ok := vectors.Get(c.Offset)
		if !ok {
			continue
		}

		scoreToTarget := c.Score

		accept := true
		for _, sVec := range selectedVecs {
			if scorer.ScorePair(cVec, sVec) > scoreToTarget {
				accept = false
				break
			}
		}

		if accept {
			selected = append(selected, c)
			selectedVecs = append(selectedVecs, cVec)
		} else {
			rejected = append(rejected, c)
		}
	}

	if g.params.ExtendCandidates {
		for _, c := range rejected {
			if len(selected) >= cap {
				break
			}
			selected = append(selected, c)
		}
	}

	return selected
}
