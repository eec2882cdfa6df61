// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/containerd/console"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/peftlab/peftllama/envconfig"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-28s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	if runtime.GOOS == "windows" && term.IsTerminal(int(os.Stdout.Fd())) {
		console.ConsoleFromFile(os.Stdin) //nolint:errcheck
	}

	rootCmd := &cobra.Command{
		Use:           "peftllama",
		Short:         "PEFT-tuned language model runner",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	// Commands erstellen
	serveCmd := newServeCmd()
	createCmd := newCreateCmd()
	runCmd := newRunCmd()
	scoreCmd := newScoreCmd()
	generateCmd := newGenerateCmd()
	showCmd := newShowCmd()

	// Environment-Dokumentation hinzufuegen
	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["PEFTLLAMA_HOST"]}

	for _, cmd := range []*cobra.Command{
		serveCmd,
		createCmd,
		runCmd,
		scoreCmd,
		generateCmd,
		showCmd,
	} {
		switch cmd {
		case runCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{envVars["PEFTLLAMA_HOST"], envVars["PEFTLLAMA_NOHISTORY"]})
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["PEFTLLAMA_DEBUG"],
				envVars["PEFTLLAMA_HOST"],
				envVars["PEFTLLAMA_MODELS"],
				envVars["PEFTLLAMA_ORIGINS"],
				envVars["PEFTLLAMA_LOAD_TIMEOUT"],
				envVars["PEFTLLAMA_NUM_THREADS"],
				envVars["PEFTLLAMA_USE_8BIT"],
				envVars["PEFTLLAMA_GENERATION_LENGTH"],
			})
		case createCmd:
			// lokale Operation, keine Server-Variablen
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		createCmd,
		runCmd,
		scoreCmd,
		generateCmd,
		showCmd,
	)

	return rootCmd
}
