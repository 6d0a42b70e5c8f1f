// Command artsync keeps artwork in sync with its provider.
package main

import (
	"os"

	"github.com/custodia-labs/artsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/artsync/internal/bootstrap"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap.Build)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
