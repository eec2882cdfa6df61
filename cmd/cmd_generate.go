// cmd_generate.go - Score- und Generate-Commands
// Hauptfunktionen: ScoreHandler, GenerateHandler
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peftlab/peftllama/api"
)

// formatTokens formatiert Token-IDs als Zeile mit Leerzeichen
func formatTokens(tokens []int32) string {
	fields := make([]string, len(tokens))
	for i, t := range tokens {
		fields[i] = strconv.FormatInt(int64(t), 10)
	}

	return strings.Join(fields, " ")
}

// ScoreHandler - Bewertet Token-Sequenzen und gibt Logits als JSON aus
func ScoreHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	prompts, err := parsePrompts(args)
	if err != nil {
		return err
	}

	resp, err := client.Score(cmd.Context(), &api.ScoreRequest{Prompts: prompts})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if err := enc.Encode(struct {
		Shape  []int     `json:"shape"`
		Logits []float32 `json:"logits"`
	}{resp.Shape, resp.Logits}); err != nil {
		return err
	}

	if verbose {
		resp.Summary()
	}

	return nil
}

// generateOneShot schickt die Prompts an den Server und gibt jede
// erzeugte Sequenz als Zeile aus
func generateOneShot(cmd *cobra.Command, args []string, length int, verbose bool) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	prompts, err := parsePrompts(args)
	if err != nil {
		return err
	}

	resp, err := client.Generate(cmd.Context(), &api.GenerateRequest{Prompts: prompts, Length: length})
	if err != nil {
		return err
	}

	for _, seq := range resp.Sequences {
		fmt.Println(formatTokens(seq))
	}

	if verbose {
		resp.Summary()
	}

	return nil
}

// GenerateHandler - Erzeugt neue Tokens fuer die angegebenen Sequenzen
func GenerateHandler(cmd *cobra.Command, args []string) error {
	length, err := cmd.Flags().GetInt("length")
	if err != nil {
		return err
	}

	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return err
	}

	return generateOneShot(cmd, args, length, verbose)
}
