package loader

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
)

const PaperAPIURL = "https://api.papermc.io/v2/projects/paper/"

type paperVersionsResponse struct {
	Versions []string `json:"versions"`
}

type paperBuildsResponse struct {
	Builds []int `json:"builds"`
}

type PaperInstaller struct {
	BaseURL string
	Client  *http.Client
	logger  *log.Logger
}

func NewPaperInstaller(logger *log.Logger) *PaperInstaller {
	return &PaperInstaller{BaseURL: PaperAPIURL, Client: defaultClient(), logger: logger}
}

// Versions skips pre-releases, whose ids carry a dash.
func (l *PaperInstaller) Versions(ctx context.Context) ([]string, error) {
	var response paperVersionsResponse
	if err := getJSON(ctx, l.Client, l.BaseURL, &response); err != nil {
		return nil, fmt.Errorf("error getting Paper versions: %w", err)
	}

	var versions []string
	for _, v := range response.Versions {
		if !strings.Contains(v, "-") {
			versions = append(versions, v)
		}
	}
	SortVersions(versions)
	return versions, nil
}

func (l *PaperInstaller) Install(ctx context.Context, version, dest string) error {
	l.logger.Info("searching for version", "loader", "paper", "version", version)

	versions, err := l.Versions(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(versions, version) {
		return fmt.Errorf("version %s not found in Paper", version)
	}

	var builds paperBuildsResponse
	if err := getJSON(ctx, l.Client, fmt.Sprintf("%sversions/%s", l.BaseURL, version), &builds); err != nil {
		return fmt.Errorf("error getting latest build: %w", err)
	}
	if len(builds.Builds) == 0 {
		return fmt.Errorf("no builds found for version %s", version)
	}
	build := builds.Builds[len(builds.Builds)-1]

	url := fmt.Sprintf("%sversions/%s/builds/%d/downloads/paper-%s-%d.jar", l.BaseURL, version, build, version, build)
	l.logger.Info("downloading server jar", "build", build, "dest", dest)
	return download(ctx, l.Client, url, dest, "downloading paper server", l.logger)
}
