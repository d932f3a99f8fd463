package loader

import "context"

// Installer fetches a runnable server jar for a Minecraft version.
type Installer interface {
	// Install downloads the jar for version to dest, replacing it atomically.
	Install(ctx context.Context, version, dest string) error
	Versions(ctx context.Context) ([]string, error)
}
