package strategy

import "os/exec"

// LaunchSpec describes how the server process is launched. Memory values are
// passed to the JVM verbatim, e.g. "4G" or "2048M".
type LaunchSpec struct {
	JavaPath  string
	ServerDir string
	JarFile   string
	MaxMemory string
	MinMemory string
	ExtraArgs string
}

type ServerRunner interface {
	BuildCommand(spec LaunchSpec) (*exec.Cmd, error)
}
