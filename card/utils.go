package card

// Counts 名称多重集合
func Counts(names []string) map[string]int {
	out := make(map[string]int, len(names))
	for _, n := range names {
		out[n]++
	}
	return out
}

// SameMultiset reports whether a and b hold the same names with the same counts.
func SameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	need := Counts(a)
	for _, n := range b {
		need[n]--
		if need[n] < 0 {
			return false
		}
	}
	return true
}

// Missing 返回 want 中 have 未覆盖的名称 (按次数)
func Missing(want, have []string) []string {
	left := Counts(have)
	var out []string
	for _, n := range want {
		if left[n] > 0 {
			left[n]--
			continue
		}
		out = append(out, n)
	}
	return out
}
