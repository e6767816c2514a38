package anchor

// Ratio computes a normalized similarity ratio in [0,1] between two strings:
// 2*M/T where M is the total size of matched blocks and T the combined
// length. Matched blocks are found by repeatedly taking the longest common
// substring and recursing on the pieces to its left and right, which is the
// behavior the anchor rules were originally calibrated against.
func Ratio(s1, s2 string) float64 {
	a, b := []rune(s1), []rune(s2)
	total := len(a) + len(b)
	if total == 0 {
		return 1.0
	}

	b2j := make(map[rune][]int, len(b))
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}

	matches := matchedRunes(a, b, 0, len(a), 0, len(b), b2j)
	return 2.0 * float64(matches) / float64(total)
}

func matchedRunes(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) int {
	i, j, k := longestMatch(a, b, alo, ahi, blo, bhi, b2j)
	if k == 0 {
		return 0
	}
	return k +
		matchedRunes(a, b, alo, i, blo, j, b2j) +
		matchedRunes(a, b, i+k, ahi, j+k, bhi, b2j)
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given
// window, preferring the earliest block in a, then in b, on ties.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int, b2j map[rune][]int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := make(map[int]int)

	for i := alo; i < ahi; i++ {
		newj2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newj2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newj2len
	}
	return besti, bestj, bestsize
}
