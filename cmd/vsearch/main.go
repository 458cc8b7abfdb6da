// Command vsearch exercises a segment end to end from the shell: build
// an index from a vector file, search it, inspect it, and flush it to
// disk. Built cobra-style, with one file per subcommand and styled
// status lines.
package main

import (
	"fmt"
	"os"

	"github.com/vectorcore/hnswengine/cmd/vsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
