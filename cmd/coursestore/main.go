// Command coursestore runs the course cache as a standalone process.
//
//	coursestore serve -c config.yaml [--watch]
//	coursestore validate -c config.yaml
//	coursestore list -c config.yaml [--category C] [--json]
//	coursestore save -c config.yaml ID key=value...
//	coursestore version
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coursestore",
	Short: "A reactive cache for a remote course API",
	Long: `coursestore keeps a local cache of a remote course collection.

The collection is loaded once and served over HTTP, with Server-Sent Events
and WebSocket streams for live updates. Saves land in the cache first and are
then forwarded to the remote API.

Minimal config:
  api:
    url: http://localhost:9000

Then:
  coursestore serve -c coursestore.yaml
  curl http://localhost:8080/api/courses`,
	SilenceUsage: true,
}

func main() {
	// cobra has already printed the error
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
