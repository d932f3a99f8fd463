package jvm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

var (
	versionRe = regexp.MustCompile(`version\s+"([^"]+)"`)
	digitsRe  = regexp.MustCompile(`\d+`)
)

// Manager locates a Java runtime able to run the server. Runtimes unpacked
// under RuntimesPath/java-<major> take precedence over JAVA_HOME and PATH.
type Manager struct {
	RuntimesPath string
	MinVersion   int
	logger       *log.Logger
}

func NewManager(runtimesPath string, minVersion int, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default().WithPrefix("jvm")
	}
	return &Manager{RuntimesPath: runtimesPath, MinVersion: minVersion, logger: logger}
}

func javaBinName() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}

// Resolve returns an absolute path to a java binary. An explicit javaPath is
// only checked; otherwise the managed runtimes, JAVA_HOME and PATH are
// searched in that order.
func (m *Manager) Resolve(javaPath string) (string, error) {
	if javaPath != "" && javaPath != "java" {
		found, err := exec.LookPath(javaPath)
		if err != nil {
			return "", fmt.Errorf("java executable %q: %w", javaPath, err)
		}
		return m.check(found)
	}

	var candidates []string
	if m.RuntimesPath != "" && m.MinVersion > 0 {
		installDir := filepath.Join(m.RuntimesPath, fmt.Sprintf("java-%d", m.MinVersion))
		if fi, err := os.Stat(installDir); err == nil && fi.IsDir() {
			if found, err := findJavaBin(installDir, javaBinName()); err == nil {
				candidates = append(candidates, found)
			}
		}
	}
	if home := os.Getenv("JAVA_HOME"); home != "" {
		candidates = append(candidates, filepath.Join(home, "bin", javaBinName()))
	}
	if found, err := exec.LookPath("java"); err == nil {
		candidates = append(candidates, found)
	}

	var lastErr error
	for _, candidate := range candidates {
		resolved, err := m.check(candidate)
		if err == nil {
			return resolved, nil
		}
		m.logger.Debug("skipping java candidate", "path", candidate, "err", err)
		lastErr = err
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", errors.New("no java executable found; set java_path or JAVA_HOME")
}

func (m *Manager) check(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("could not get absolute path: %w", err)
	}
	if m.MinVersion <= 0 {
		return abs, nil
	}

	major, err := javaMajorVersion(abs)
	if err != nil {
		return "", err
	}
	if major < m.MinVersion {
		return "", fmt.Errorf("java at %s is version %d, need %d or newer", abs, major, m.MinVersion)
	}
	return abs, nil
}

func findJavaBin(root, binName string) (string, error) {
	var foundPath string
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == binName {
			if info.Mode()&0111 != 0 || runtime.GOOS == "windows" {
				foundPath = path
				return io.EOF
			}
		}
		return nil
	})

	if walkErr != nil && walkErr != io.EOF {
		return "", fmt.Errorf("error walking %s: %w", root, walkErr)
	}

	if foundPath != "" {
		return foundPath, nil
	}
	return "", fmt.Errorf("binary %s not found in %s", binName, root)
}

func javaMajorVersion(javaPath string) (int, error) {
	out, err := exec.Command(javaPath, "-version").CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("run %s -version: %w", javaPath, err)
	}
	major, ok := ParseMajorVersion(string(out))
	if !ok {
		return 0, fmt.Errorf("unrecognized java version output from %s", javaPath)
	}
	return major, nil
}

// ParseMajorVersion extracts the major version from `java -version` output,
// handling both the legacy 1.x scheme and the modern one.
func ParseMajorVersion(output string) (int, bool) {
	m := versionRe.FindStringSubmatch(output)
	if len(m) < 2 {
		return 0, false
	}
	parts := strings.Split(m[1], ".")
	segment := parts[0]
	if parts[0] == "1" && len(parts) > 1 {
		segment = parts[1]
	}
	num := digitsRe.FindString(segment)
	if num == "" {
		return 0, false
	}
	major, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return major, true
}
