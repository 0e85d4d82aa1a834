// Command genimage serves the prompt studio API and drives it from the terminal.
package main

import (
	"os"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/cmd"
)

// Build metadata, injected with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	os.Exit(cmd.Run())
}
