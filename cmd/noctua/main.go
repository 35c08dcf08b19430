// Command noctua drives the scraper-development pipeline from the
// terminal: run a target URL + intent to completion, inspect/resume a
// prior run from its persisted state.json, list runs across every project
// via the run index, or manage stored provider credentials. Grounded on
// the teacher's cmd/maestro entrypoint shape and lucasnoah-taintfactory's
// cobra command tree, generalized from maestro's flag-based
// single-command CLI to a cobra subcommand tree since this pipeline
// exposes several distinct verbs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "noctua:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "noctua",
		Short: "Autonomous scraper-development pipeline",
	}
	root.PersistentFlags().String("config", "", "directory to look for noctua.yaml in")
	root.AddCommand(newRunCmd())
	root.AddCommand(newResumeCmd())
	root.AddCommand(newInspectCmd())
	root.AddCommand(newCredentialsCmd())
	root.AddCommand(newRunsCmd())
	return root
}
