package loader

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

func defaultClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}

// GetInstaller returns the installer for loaderType. Forge and NeoForge ship
// an installer that has to run under a JVM, so their jars are installed by
// hand and only launched by the bridge.
func GetInstaller(loaderType string, logger *log.Logger) (Installer, error) {
	if logger == nil {
		logger = log.Default().WithPrefix("loader")
	}
	switch loaderType {
	case "", "vanilla":
		return NewVanillaInstaller(logger), nil
	case "paper":
		return NewPaperInstaller(logger), nil
	case "fabric":
		return NewFabricInstaller(logger), nil
	case "forge", "neoforge":
		return nil, fmt.Errorf("loader type '%s' must be installed manually", loaderType)
	default:
		return nil, fmt.Errorf("loader type '%s' not supported", loaderType)
	}
}

func AvailableLoaders() []string {
	return []string{"vanilla", "paper", "fabric"}
}
