// Command journey drives the Rethink Bank points API through an end-to-end
// user journey and reports which steps held.
package main

import (
	"os"

	"github.com/roach88/pointsjourney/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	os.Exit(cli.GetExitCode(err))
}
