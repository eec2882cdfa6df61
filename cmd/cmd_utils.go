// cmd_utils.go - Hilfsfunktionen fuer die CLI
// Hauptfunktionen: checkServerHeartbeat, parsePrompts
package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peftlab/peftllama/api"
)

// checkServerHeartbeat - Prueft ob der Server erreichbar ist
func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	if err := client.Heartbeat(cmd.Context()); err != nil {
		if !strings.Contains(err.Error(), " refused") {
			return err
		}

		return errors.New("could not connect to a running peftllama instance, start one with \"peftllama serve\"")
	}

	return nil
}

// parseTokens wandelt eine Zeile aus Token-IDs in eine Prompt-Zeile um.
// IDs sind durch Leerzeichen oder Kommas getrennt.
func parseTokens(s string) ([]int32, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("prompt %q has no token ids", s)
	}

	tokens := make([]int32, len(fields))
	for i, f := range fields {
		id, err := strconv.ParseInt(f, 10, 32)
		if err != nil || id < 0 {
			return nil, fmt.Errorf("invalid token id %q", f)
		}
		tokens[i] = int32(id)
	}

	return tokens, nil
}

// parsePrompts wandelt die Kommandozeilen-Argumente in Prompt-Zeilen um,
// ein Argument pro Zeile
func parsePrompts(args []string) ([][]int32, error) {
	prompts := make([][]int32, len(args))
	for i, arg := range args {
		tokens, err := parseTokens(arg)
		if err != nil {
			return nil, err
		}
		prompts[i] = tokens
	}

	return prompts, nil
}
