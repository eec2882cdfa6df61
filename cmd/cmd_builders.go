// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newServeCmd, newRunCmd, newScoreCmd, etc.
package cmd

import (
	"github.com/spf13/cobra"
)

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve [CHECKPOINT]",
		Aliases: []string{"start"},
		Short:   "Start the server",
		Args:    cobra.MaximumNArgs(1),
		RunE:    RunServer,
	}
}

// newCreateCmd - Erstellt den create Command
func newCreateCmd() *cobra.Command {
	createCmd := &cobra.Command{
		Use:   "create CHECKPOINT",
		Short: "Initialize PEFT parameters for a checkpoint",
		Args:  cobra.ExactArgs(1),
		RunE:  CreateHandler,
	}

	createCmd.Flags().String("peft", "", "PEFT mode (prefix, prompt, lora, adapter, bitfit, ia3, prefix_adapter)")
	createCmd.Flags().Int("prefix-tokens", 16, "Number of virtual tokens for prefix and prompt tuning")
	createCmd.Flags().Int("rank", 8, "LoRA rank")
	createCmd.Flags().Int("adapter-size", 64, "Adapter bottleneck size")
	createCmd.Flags().String("adapter-version", "pfeiffer", "Adapter placement (pfeiffer or houlsby)")
	createCmd.Flags().Int64("seed", 0, "Seed for random initialization")
	//nolint:errcheck
	createCmd.MarkFlagRequired("peft")

	return createCmd
}

// newRunCmd - Erstellt den run Command
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:     "run [TOKENS...]",
		Short:   "Generate from token ids, interactively without arguments",
		Args:    cobra.ArbitraryArgs,
		PreRunE: checkServerHeartbeat,
		RunE:    RunHandler,
	}

	runCmd.Flags().Int("length", 0, "Number of new tokens per prompt (0 uses the server default)")
	runCmd.Flags().Bool("verbose", false, "Show timings for response")

	return runCmd
}

// newScoreCmd - Erstellt den score Command
func newScoreCmd() *cobra.Command {
	scoreCmd := &cobra.Command{
		Use:     "score TOKENS...",
		Short:   "Print logits for token sequences",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    ScoreHandler,
	}

	scoreCmd.Flags().Bool("verbose", false, "Show timings for response")

	return scoreCmd
}

// newGenerateCmd - Erstellt den generate Command
func newGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:     "generate TOKENS...",
		Short:   "Generate new tokens for token sequences",
		Args:    cobra.MinimumNArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    GenerateHandler,
	}

	generateCmd.Flags().Int("length", 0, "Number of new tokens per prompt (0 uses the server default)")
	generateCmd.Flags().Bool("verbose", false, "Show timings for response")

	return generateCmd
}

// newShowCmd - Erstellt den show Command
func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "show",
		Short:   "Show information for the loaded model",
		Args:    cobra.ExactArgs(0),
		PreRunE: checkServerHeartbeat,
		RunE:    ShowHandler,
	}
}
