package ipc

import (
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// SocketPath locates the window manager's IPC socket: $I3SOCK when set,
// otherwise by asking the i3 binary.
func SocketPath() (string, error) {
	if path := os.Getenv("I3SOCK"); path != "" {
		return path, nil
	}

	out, err := exec.Command("i3", "--get-socketpath").Output()
	if err != nil {
		return "", errors.Wrap(err, "ipc: get socket path from i3")
	}
	return strings.TrimSpace(string(out)), nil
}
