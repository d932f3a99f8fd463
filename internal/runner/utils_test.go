package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetJavaVersionForMC(t *testing.T) {
	tests := map[string]int{
		"1.8.9":   8,
		"1.16.5":  8,
		"1.18":    17,
		"1.20.4":  17,
		"1.20.5":  21,
		"1.21.1":  21,
		"26.1":    21,
		"1":       8,
		"snapshot": 21,
	}
	for version, want := range tests {
		assert.Equal(t, want, GetJavaVersionForMC(version), version)
	}
}
