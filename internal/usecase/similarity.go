package usecase

// sequenceRatio measures the similarity of a and b as 2*M/T, where M is the
// number of characters in the matching blocks found by recursively taking the
// longest common substring (Ratcliff/Obershelp) and T is the total length.
// Two empty strings are identical. For b of 200+ characters, characters that
// make up more than 1% of b are not used to seed matches.
func sequenceRatio(a, b string) float64 {
	ar, br := []rune(a), []rune(b)
	total := len(ar) + len(br)
	if total == 0 {
		return 1.0
	}
	m := newSequenceMatcher(ar, br)
	return 2.0 * float64(m.matchingCharacters()) / float64(total)
}

type sequenceMatcher struct {
	a, b []rune
	b2j  map[rune][]int // positions of each character of b, ascending
}

func newSequenceMatcher(a, b []rune) *sequenceMatcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	if n := len(b); n >= 200 {
		popular := n/100 + 1
		for r, positions := range b2j {
			if len(positions) > popular {
				delete(b2j, r)
			}
		}
	}

	return &sequenceMatcher{a: a, b: b, b2j: b2j}
}

// matchingCharacters sums the sizes of all matching blocks
func (m *sequenceMatcher) matchingCharacters() int {
	type span struct{ alo, ahi, blo, bhi int }

	total := 0
	queue := []span{{0, len(m.a), 0, len(m.b)}}
	for len(queue) > 0 {
		s := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		i, j, k := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		total += k
		if s.alo < i && s.blo < j {
			queue = append(queue, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			queue = append(queue, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return total
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given
// ranges, preferring the earliest i and then the earliest j.
func (m *sequenceMatcher) longestMatch(alo, ahi, blo, bhi int) (int, int, int) {
	bestI, bestJ, bestSize := alo, blo, 0

	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestSize {
				bestI, bestJ, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	// popular characters were left out of b2j; grow the block over them
	for bestI > alo && bestJ > blo && m.a[bestI-1] == m.b[bestJ-1] {
		bestI, bestJ, bestSize = bestI-1, bestJ-1, bestSize+1
	}
	for bestI+bestSize < ahi && bestJ+bestSize < bhi && m.a[bestI+bestSize] == m.b[bestJ+bestSize] {
		bestSize++
	}
	return bestI, bestJ, bestSize
}
