// Command consult runs an interactive diagnostic consultation on the console
// against the kdb*.json knowledge bases of a directory.
package main

import (
	"fmt"
	"os"

	"github.com/Harshitk-cp/expertd/internal/buildconfig"
	"github.com/Harshitk-cp/expertd/internal/config"
	"github.com/spf13/cobra"
)

var kbDir string

var rootCmd = &cobra.Command{
	Use:   "consult",
	Short: "Interactive Bayesian diagnosis on the console",
	Long: `consult asks the most informative question of a knowledge base, one at a
time, and revises the belief in every hypothesis after each answer until a
winner is certain.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := config.NewLogger()
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		c := newConsole(kbDir, cmd.InOrStdin(), cmd.OutOrStdout(), logger)
		return c.run(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "consult %s\n", buildconfig.Current())
	},
}

func init() {
	_ = config.Load()

	rootCmd.Flags().StringVarP(&kbDir, "dir", "d", config.KnowledgeBaseDir(), "directory holding kdb*.json knowledge bases")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
