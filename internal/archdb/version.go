package archdb

import "strconv"

// CompareVersions implements the Arch vercmp ordering: an optional
// "epoch:" prefix compares first and numerically, then the remainder is
// split at the last '-' into version and release, each compared by
// alternating numeric/alphabetic segments (numerics compare numerically,
// alphabetics lexicographically; a numeric segment always beats an
// alphabetic one at the same position).
//
// An epoch prefix that fails to parse is treated as epoch 0, the lowest
// possible epoch, and the rest of the version is still compared.
func CompareVersions(a, b string) int {
	ea, ra := splitEpoch(a)
	eb, rb := splitEpoch(b)
	if ea != eb {
		if ea < eb {
			return -1
		}
		return 1
	}

	va, rela := splitRelease(ra)
	vb, relb := splitRelease(rb)

	if c := compareParts(va, vb); c != 0 {
		return c
	}
	return compareParts(rela, relb)
}

func splitEpoch(v string) (epoch int64, rest string) {
	for i := 0; i < len(v); i++ {
		if v[i] == ':' {
			n, err := strconv.ParseInt(v[:i], 10, 64)
			if err != nil {
				return 0, v[i+1:]
			}
			return n, v[i+1:]
		}
	}
	return 0, v
}

func splitRelease(v string) (ver, rel string) {
	idx := -1
	for i := len(v) - 1; i >= 0; i-- {
		if v[i] == '-' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return v, ""
	}
	return v[:idx], v[idx+1:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func compareParts(a, b string) int {
	i, j := 0, 0
	for {
		for i < len(a) && !isDigit(a[i]) && !isAlpha(a[i]) {
			i++
		}
		for j < len(b) && !isDigit(b[j]) && !isAlpha(b[j]) {
			j++
		}

		segA, nextI := collectSegment(a, i)
		segB, nextJ := collectSegment(b, j)
		i, j = nextI, nextJ

		if segA == "" && segB == "" {
			return 0
		}

		numA := segA != "" && isDigit(segA[0])
		numB := segB != "" && isDigit(segB[0])

		switch {
		case numA && numB:
			na, _ := strconv.ParseInt(segA, 10, 64)
			nb, _ := strconv.ParseInt(segB, 10, 64)
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
		case numA && !numB:
			return 1
		case !numA && numB:
			return -1
		default:
			if segA != segB {
				if segA < segB {
					return -1
				}
				return 1
			}
		}
	}
}

func collectSegment(s string, i int) (seg string, next int) {
	if i >= len(s) {
		return "", i
	}
	if isDigit(s[i]) {
		start := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		return s[start:i], i
	}
	if isAlpha(s[i]) {
		start := i
		for i < len(s) && isAlpha(s[i]) {
			i++
		}
		return s[start:i], i
	}
	return "", i
}
