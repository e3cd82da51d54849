// ABOUTME: Entry point for the cuedeck cue player
// ABOUTME: Hands off to the cobra command tree in internal/cli
package main

import (
	"os"

	"github.com/cuedeck/cuedeck/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
