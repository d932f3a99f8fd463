package loader

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
)

const ManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

type manifest struct {
	Versions []manifestVersion `json:"versions"`
}

type manifestVersion struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

type versionDetails struct {
	Downloads struct {
		Server struct {
			URL string `json:"url"`
		} `json:"server"`
	} `json:"downloads"`
}

type VanillaInstaller struct {
	ManifestURL string
	Client      *http.Client
	logger      *log.Logger
}

func NewVanillaInstaller(logger *log.Logger) *VanillaInstaller {
	return &VanillaInstaller{ManifestURL: ManifestURL, Client: defaultClient(), logger: logger}
}

// Versions lists releases only; snapshots are in the manifest too.
func (l *VanillaInstaller) Versions(ctx context.Context) ([]string, error) {
	var m manifest
	if err := getJSON(ctx, l.Client, l.ManifestURL, &m); err != nil {
		return nil, fmt.Errorf("could not get version manifest: %w", err)
	}

	var versions []string
	for _, v := range m.Versions {
		if v.Type == "release" {
			versions = append(versions, v.ID)
		}
	}
	return versions, nil
}

func (l *VanillaInstaller) Install(ctx context.Context, version, dest string) error {
	l.logger.Info("searching for version", "loader", "vanilla", "version", version)

	var m manifest
	if err := getJSON(ctx, l.Client, l.ManifestURL, &m); err != nil {
		return fmt.Errorf("could not get version manifest: %w", err)
	}

	var versionURL string
	for _, v := range m.Versions {
		if v.ID == version {
			versionURL = v.URL
			break
		}
	}
	if versionURL == "" {
		return fmt.Errorf("version %s not found in Mojang", version)
	}

	var details versionDetails
	if err := getJSON(ctx, l.Client, versionURL, &details); err != nil {
		return fmt.Errorf("could not get version details: %w", err)
	}
	if details.Downloads.Server.URL == "" {
		return fmt.Errorf("version %s has no server download", version)
	}

	l.logger.Info("downloading server jar", "url", details.Downloads.Server.URL, "dest", dest)
	return download(ctx, l.Client, details.Downloads.Server.URL, dest, "downloading vanilla server", l.logger)
}
