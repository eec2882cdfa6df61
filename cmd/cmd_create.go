// cmd_create.go - Create Command fuer die PEFT-Initialisierung
// Hauptfunktionen: CreateHandler
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/peftlab/peftllama/convert"
	"github.com/peftlab/peftllama/peft"
)

// CreateHandler - Initialisiert PEFT-Parameter fuer einen Checkpoint
func CreateHandler(cmd *cobra.Command, args []string) error {
	mode, err := cmd.Flags().GetString("peft")
	if err != nil {
		return err
	}

	prefixTokens, err := cmd.Flags().GetInt("prefix-tokens")
	if err != nil {
		return err
	}

	rank, err := cmd.Flags().GetInt("rank")
	if err != nil {
		return err
	}

	adapterSize, err := cmd.Flags().GetInt("adapter-size")
	if err != nil {
		return err
	}

	adapterVariant, err := cmd.Flags().GetString("adapter-version")
	if err != nil {
		return err
	}

	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		return err
	}

	cfg := peft.Config{
		Mode:            peft.Mode(mode),
		NumPrefixTokens: prefixTokens,
		LoRARank:        rank,
		AdapterSize:     adapterSize,
		AdapterVariant:  adapterVariant,
	}

	if err := convert.InitPeft(args[0], cfg, seed); err != nil {
		return err
	}

	fmt.Printf("initialized %s parameters in %s\n", mode, args[0])
	return nil
}
