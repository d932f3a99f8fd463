package strategy

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type VanillaRunner struct{}

func (r *VanillaRunner) BuildCommand(spec LaunchSpec) (*exec.Cmd, error) {
	jarPath := spec.JarFile
	if jarPath == "" {
		jarPath = "server.jar"
	}

	jarFull := jarPath
	if !filepath.IsAbs(jarFull) {
		jarFull = filepath.Join(spec.ServerDir, jarPath)
	}
	if _, err := os.Stat(jarFull); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("server jar not found at %s", jarFull)
		}
		return nil, fmt.Errorf("error accessing %s: %w", jarFull, err)
	}

	args := memoryArgs(spec)
	if spec.ExtraArgs != "" {
		args = append(args, strings.Fields(spec.ExtraArgs)...)
	}
	args = append(args, "-jar", jarFull, "nogui")

	cmd := exec.Command(spec.JavaPath, args...)
	cmd.Dir = spec.ServerDir
	return cmd, nil
}

func memoryArgs(spec LaunchSpec) []string {
	var args []string
	if spec.MaxMemory != "" {
		args = append(args, "-Xmx"+spec.MaxMemory)
	}
	if spec.MinMemory != "" {
		args = append(args, "-Xms"+spec.MinMemory)
	}
	return args
}
