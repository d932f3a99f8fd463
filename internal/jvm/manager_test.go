package jvm

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMajorVersion(t *testing.T) {
	tests := []struct {
		output string
		want   int
		ok     bool
	}{
		{`openjdk version "21.0.2" 2024-01-16`, 21, true},
		{`java version "1.8.0_392"`, 8, true},
		{`openjdk version "17-ea" 2021-09-14`, 17, true},
		{`garbage`, 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseMajorVersion(tt.output)
		assert.Equal(t, tt.ok, ok, tt.output)
		assert.Equal(t, tt.want, got, tt.output)
	}
}

func fakeJava(t *testing.T, dir, version string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script java stub needs a unix shell")
	}
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "java")
	script := "#!/bin/sh\necho 'openjdk version \"" + version + "\" 2024-01-16' >&2\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func TestResolveExplicitPath(t *testing.T) {
	java := fakeJava(t, t.TempDir(), "21.0.2")

	got, err := NewManager("", 17, nil).Resolve(java)
	require.NoError(t, err)
	assert.Equal(t, java, got)
}

func TestResolveRejectsOldJava(t *testing.T) {
	java := fakeJava(t, t.TempDir(), "1.8.0_392")

	_, err := NewManager("", 17, nil).Resolve(java)
	assert.ErrorContains(t, err, "need 17")
}

func TestResolvePrefersManagedRuntime(t *testing.T) {
	root := t.TempDir()
	java := fakeJava(t, filepath.Join(root, "java-21", "jdk-21", "bin"), "21.0.2")
	t.Setenv("JAVA_HOME", "")

	got, err := NewManager(root, 21, nil).Resolve("")
	require.NoError(t, err)
	assert.Equal(t, java, got)
}

func TestResolveMissingExplicitPath(t *testing.T) {
	_, err := NewManager("", 0, nil).Resolve(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
