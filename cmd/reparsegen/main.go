// Command reparsegen is the go:generate-driven source tool that compiles
// reparse.Scan(...) marker calls into generated scanning code. Its CLI
// structure (a root command delegating to SilenceErrors/RunE subcommands)
// follows the teacher's cli/main.go convention.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "reparsegen",
		Short:         "Compile reparse.Scan(...) call sites into generated scanning code",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newCleanCacheCmd())
	rootCmd.AddCommand(newExplainCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "reparsegen: %v\n", err)
		os.Exit(1)
	}
}
