package server

import (
	"fmt"
	"net"
	"strconv"
)

// CheckPortAvailable fails when something is already listening on port.
// Minecraft binds the wildcard address, so that is what gets probed.
func CheckPortAvailable(port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("port %d is not available: %w", port, err)
	}
	return ln.Close()
}
