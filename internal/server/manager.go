package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"craftbridge/internal/loader"

	"github.com/charmbracelet/log"
)

// Workspace is the on-disk server directory the supervisor launches from.
type Workspace struct {
	Dir          string
	JarFile      string
	GamePort     int
	RCONPort     int
	RCONPassword string
	AcceptEULA   bool
	// Installer and Version, when both set, fetch the jar on first launch.
	Installer loader.Installer
	Version   string
	Logger    *log.Logger
}

// Prepare runs before every launch: it checks the jar exists and the ports
// are free, and makes sure server.properties enables RCON with the
// credentials the bridge will use.
func (w *Workspace) Prepare() error {
	logger := w.Logger
	if logger == nil {
		logger = log.Default().WithPrefix("workspace")
	}

	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("filesystem error: %w", err)
	}

	jar := w.JarFile
	if jar == "" {
		jar = "server.jar"
	}
	if !filepath.IsAbs(jar) {
		jar = filepath.Join(w.Dir, jar)
	}
	if _, err := os.Stat(jar); err != nil {
		if !os.IsNotExist(err) || w.Installer == nil || w.Version == "" {
			return fmt.Errorf("server jar not found at %s", jar)
		}
		logger.Info("server jar missing, installing", "version", w.Version, "jar", jar)
		if err := w.Installer.Install(context.Background(), w.Version, jar); err != nil {
			return fmt.Errorf("install server jar: %w", err)
		}
	}

	for _, port := range []int{w.GamePort, w.RCONPort} {
		if port == 0 {
			continue
		}
		if err := CheckPortAvailable(port); err != nil {
			return err
		}
	}

	if w.AcceptEULA {
		if err := os.WriteFile(filepath.Join(w.Dir, "eula.txt"), []byte("eula=true\n"), 0o644); err != nil {
			return fmt.Errorf("write eula.txt: %w", err)
		}
	}

	want := map[string]string{
		"enable-rcon":   "true",
		"rcon.password": w.RCONPassword,
	}
	if w.RCONPort != 0 {
		want["rcon.port"] = strconv.Itoa(w.RCONPort)
	}
	if w.GamePort != 0 {
		want["server-port"] = strconv.Itoa(w.GamePort)
	}

	changed, err := EnsureProperties(w.Dir, want)
	if err != nil {
		return fmt.Errorf("update server.properties: %w", err)
	}
	if changed {
		logger.Info("server.properties updated", "dir", w.Dir, "rconPort", w.RCONPort, "gamePort", w.GamePort)
	}
	return nil
}
