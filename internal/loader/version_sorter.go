package loader

import (
	"slices"
	"strconv"
	"strings"
)

// CompareVersions orders dotted versions numerically where both parts are
// numbers and lexically otherwise.
func CompareVersions(a, b string) int {
	parts1 := strings.Split(a, ".")
	parts2 := strings.Split(b, ".")

	for k := 0; k < max(len(parts1), len(parts2)); k++ {
		var p1, p2 string
		if k < len(parts1) {
			p1 = parts1[k]
		}
		if k < len(parts2) {
			p2 = parts2[k]
		}

		n1, err1 := strconv.Atoi(p1)
		n2, err2 := strconv.Atoi(p2)
		if err1 == nil && err2 == nil {
			if n1 != n2 {
				return n1 - n2
			}
		} else if p1 != p2 {
			return strings.Compare(p1, p2)
		}
	}
	return len(parts1) - len(parts2)
}

// SortVersions sorts newest first.
func SortVersions(versions []string) {
	slices.SortFunc(versions, func(a, b string) int { return CompareVersions(b, a) })
}
