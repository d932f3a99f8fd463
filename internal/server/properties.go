package server

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const propertiesFile = "server.properties"

// ReadProperties returns the key/value pairs of server.properties. A missing
// file yields an empty map.
func ReadProperties(serverDir string) (map[string]string, error) {
	props := make(map[string]string)

	file, err := os.Open(filepath.Join(serverDir, propertiesFile))
	if os.IsNotExist(err) {
		return props, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if key, val, ok := splitProperty(scanner.Text()); ok {
			props[key] = val
		}
	}
	return props, scanner.Err()
}

// EnsureProperties rewrites server.properties so every key in want has the
// given value. Comments, blank lines and the order of existing keys are
// preserved; missing keys are appended. The file is only written when
// something changed.
func EnsureProperties(serverDir string, want map[string]string) (bool, error) {
	path := filepath.Join(serverDir, propertiesFile)

	var lines []string
	if file, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		file.Close()
		if err := scanner.Err(); err != nil {
			return false, fmt.Errorf("read %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return false, err
	}

	changed := false
	seen := make(map[string]bool, len(want))
	for i, line := range lines {
		key, val, ok := splitProperty(line)
		if !ok {
			continue
		}
		target, managed := want[key]
		if !managed {
			continue
		}
		seen[key] = true
		if val != target {
			lines[i] = key + "=" + target
			changed = true
		}
	}

	for _, key := range sortedKeys(want) {
		if !seen[key] {
			lines = append(lines, key+"="+want[key])
			changed = true
		}
	}

	if !changed {
		return false, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range lines {
		writer.WriteString(line)
		writer.WriteString("\n")
	}
	return true, writer.Flush()
}

func splitProperty(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!") {
		return "", "", false
	}
	parts := strings.SplitN(trimmed, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
