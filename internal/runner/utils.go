package runner

import (
	"strconv"
	"strings"
)

// GetJavaVersionForMC returns the minimum Java major version for a server
// release.
// 1.20.5+ -> Java 21
// 1.18+   -> Java 17
// < 1.18  -> Java 8
func GetJavaVersionForMC(mcVersion string) int {
	parts := strings.Split(strings.TrimSpace(mcVersion), ".")

	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return 21
	}
	if first != 1 {
		return 21
	}
	if len(parts) < 2 {
		return 8
	}

	minor, _ := strconv.Atoi(parts[1])
	patch := 0
	if len(parts) > 2 {
		patch, _ = strconv.Atoi(parts[2])
	}

	switch {
	case minor >= 21, minor == 20 && patch >= 5:
		return 21
	case minor >= 18:
		return 17
	default:
		return 8
	}
}
