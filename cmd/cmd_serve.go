// cmd_serve.go - Server-Start und Versions-Anzeige
// Hauptfunktionen: RunServer, versionHandler
package cmd

import (
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/peftlab/peftllama/api"
	"github.com/peftlab/peftllama/envconfig"
	"github.com/peftlab/peftllama/server"
	"github.com/peftlab/peftllama/version"
)

// RunServer - Startet den PeftLlama-Server
func RunServer(_ *cobra.Command, args []string) error {
	modelDir := envconfig.Models()
	if len(args) > 0 {
		modelDir = args[0]
	}

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	err = server.Serve(ln, modelDir)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// versionHandler - Zeigt die Version an
func versionHandler(cmd *cobra.Command, _ []string) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return
	}

	serverVersion, err := client.Version(cmd.Context())
	if err != nil {
		fmt.Println("Warning: could not connect to a running PeftLlama instance")
	}

	if serverVersion != "" {
		fmt.Printf("peftllama version is %s\n", serverVersion)
	}

	if serverVersion != version.Version {
		fmt.Printf("Warning: client version is %s\n", version.Version)
	}
}
