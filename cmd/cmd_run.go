// cmd_run.go - Run Command und interaktiver Modus
// Hauptfunktionen: RunHandler, generateInteractive
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peftlab/peftllama/api"
	"github.com/peftlab/peftllama/envconfig"
	"github.com/peftlab/peftllama/readline"
)

// RunHandler - Generiert aus Token-IDs, ohne Argumente interaktiv
func RunHandler(cmd *cobra.Command, args []string) error {
	length, err := cmd.Flags().GetInt("length")
	if err != nil {
		return err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return generateInteractive(cmd, length, verbose)
	}

	return generateOneShot(cmd, args, length, verbose)
}

// usageInteractive zeigt die Hilfe des interaktiven Modus an
func usageInteractive() {
	fmt.Fprintln(os.Stderr, "Available Commands:")
	fmt.Fprintln(os.Stderr, "  /bye            Exit")
	fmt.Fprintln(os.Stderr, "  /?, /help       Help for a command")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Enter token ids separated by spaces or commas, e.g. \"1 15 42\".")
	fmt.Fprintln(os.Stderr, "")
}

// generateInteractive startet den interaktiven Generierungs-Modus
func generateInteractive(cmd *cobra.Command, length int, verbose bool) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	scanner, err := readline.New(readline.Prompt{
		Prompt:         ">>> ",
		AltPrompt:      "... ",
		Placeholder:    "Enter token ids (/? for help)",
		AltPlaceholder: "Press Enter to send",
	})
	if err != nil {
		return err
	}

	if envconfig.NoHistory() {
		scanner.HistoryDisable()
	}

	fmt.Print(readline.StartBracketedPaste)
	defer fmt.Printf(readline.EndBracketedPaste)

	for {
		line, err := scanner.Readline()
		switch {
		case errors.Is(err, io.EOF):
			fmt.Println()
			return nil
		case errors.Is(err, readline.ErrInterrupt):
			if line == "" {
				fmt.Println("\nUse Ctrl + d or /bye to exit.")
			}

			scanner.Prompt.UseAlt = false

			continue
		case err != nil:
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/bye":
			return nil
		case line == "/?", line == "/help":
			usageInteractive()
		case strings.HasPrefix(line, "/"):
			fmt.Printf("Unknown command '%s'. Type /? for help\n", line)
		default:
			tokens, err := parseTokens(line)
			if err != nil {
				fmt.Println(err)
				continue
			}

			resp, err := client.Generate(cmd.Context(), &api.GenerateRequest{Prompts: [][]int32{tokens}, Length: length})
			if err != nil {
				fmt.Println(err)
				continue
			}

			for _, seq := range resp.Sequences {
				fmt.Println(formatTokens(seq))
			}

			if verbose {
				resp.Summary()
			}
		}
	}
}
