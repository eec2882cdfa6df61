// cmd_show.go - Show Command und Modell-Info Anzeige
// Hauptfunktionen: ShowHandler, showInfo
package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/peftlab/peftllama/api"
)

// ShowHandler - Zeigt Modell-Informationen an
func ShowHandler(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	resp, err := client.Show(cmd.Context())
	if err != nil {
		return err
	}

	return showInfo(resp, os.Stdout)
}

// showInfo - Gibt detaillierte Modell-Informationen aus
func showInfo(resp *api.ShowResponse, w io.Writer) error {
	tableRender := func(header string, rows func() [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")

		table.AppendBulk(rows())
		table.Render()
		fmt.Fprintln(w)
	}

	tableRender("Model", func() (rows [][]string) {
		rows = append(rows, []string{"", "architecture", resp.Architecture})
		rows = append(rows, []string{"", "hidden size", strconv.Itoa(resp.HiddenSize)})
		rows = append(rows, []string{"", "attention heads", strconv.Itoa(resp.NumHeads)})
		rows = append(rows, []string{"", "layers", strconv.Itoa(resp.NumLayers)})
		rows = append(rows, []string{"", "vocabulary", strconv.Itoa(resp.VocabSize)})
		rows = append(rows, []string{"", "context length", strconv.Itoa(resp.MaxSequenceLength)})
		rows = append(rows, []string{"", "dtype", resp.DType})
		if resp.Use8Bit {
			rows = append(rows, []string{"", "quantization", "8 bit"})
		}
		return
	})

	tableRender("Tuning", func() (rows [][]string) {
		rows = append(rows, []string{"", "peft mode", resp.PeftMode})
		if !resp.LoadedAt.IsZero() {
			rows = append(rows, []string{"", "loaded", resp.LoadedAt.Format(time.RFC1123)})
		}
		return
	})

	return nil
}
