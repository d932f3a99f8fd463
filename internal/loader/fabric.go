package loader

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/charmbracelet/log"
)

const FabricAPIURL = "https://meta.fabricmc.net/v2/versions/"

type fabricVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

type FabricInstaller struct {
	BaseURL string
	Client  *http.Client
	logger  *log.Logger
}

func NewFabricInstaller(logger *log.Logger) *FabricInstaller {
	return &FabricInstaller{BaseURL: FabricAPIURL, Client: defaultClient(), logger: logger}
}

func (l *FabricInstaller) Versions(ctx context.Context) ([]string, error) {
	return l.stable(ctx, "game")
}

func (l *FabricInstaller) stable(ctx context.Context, path string) ([]string, error) {
	var versions []fabricVersion
	if err := getJSON(ctx, l.Client, l.BaseURL+path, &versions); err != nil {
		return nil, fmt.Errorf("error getting Fabric %s versions: %w", path, err)
	}
	var out []string
	for _, v := range versions {
		if v.Stable {
			out = append(out, v.Version)
		}
	}
	return out, nil
}

// Install uses the newest loader and the newest stable installer; the meta
// API then serves a self-contained launcher jar.
func (l *FabricInstaller) Install(ctx context.Context, version, dest string) error {
	l.logger.Info("searching for version", "loader", "fabric", "version", version)

	games, err := l.Versions(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(games, version) {
		return fmt.Errorf("version %s not found in Fabric", version)
	}

	var loaders []fabricVersion
	if err := getJSON(ctx, l.Client, l.BaseURL+"loader", &loaders); err != nil {
		return fmt.Errorf("error getting Fabric loader versions: %w", err)
	}
	if len(loaders) == 0 {
		return fmt.Errorf("no loader versions found for Fabric")
	}

	installers, err := l.stable(ctx, "installer")
	if err != nil {
		return err
	}
	if len(installers) == 0 {
		return fmt.Errorf("no stable installer version found")
	}

	url := fmt.Sprintf("%sloader/%s/%s/%s/server/jar", l.BaseURL, version, loaders[0].Version, installers[0])
	l.logger.Info("downloading server jar", "loader_version", loaders[0].Version, "dest", dest)
	return download(ctx, l.Client, url, dest, "downloading fabric server", l.logger)
}
