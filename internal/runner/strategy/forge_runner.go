package strategy

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ForgeRunner launches Forge and NeoForge servers, which ship a JVM args
// file under libraries/ instead of a runnable jar.
type ForgeRunner struct{}

func (r *ForgeRunner) BuildCommand(spec LaunchSpec) (*exec.Cmd, error) {
	librariesDir := filepath.Join(spec.ServerDir, "libraries")
	targetFile := "unix_args.txt"
	if runtime.GOOS == "windows" {
		targetFile = "win_args.txt"
	}

	if _, err := os.Stat(librariesDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("libraries directory not found in %s (required for Forge/NeoForge)", librariesDir)
	}

	var argsFile string
	err := filepath.WalkDir(librariesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == targetFile {
			argsFile = path
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("error searching %s: %w", librariesDir, err)
	}
	if argsFile == "" {
		return nil, fmt.Errorf("args file %s not found in libraries", targetFile)
	}

	args := memoryArgs(spec)

	userJvmArgs := filepath.Join(spec.ServerDir, "user_jvm_args.txt")
	if _, err := os.Stat(userJvmArgs); err == nil {
		args = append(args, "@"+userJvmArgs)
	}
	if spec.ExtraArgs != "" {
		args = append(args, strings.Fields(spec.ExtraArgs)...)
	}
	args = append(args, "@"+argsFile, "nogui")

	cmd := exec.Command(spec.JavaPath, args...)
	cmd.Dir = spec.ServerDir
	return cmd, nil
}
