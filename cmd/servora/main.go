package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/servora/servora/internal/interfaces/cli/migrate"
	"github.com/servora/servora/internal/interfaces/cli/server"
	"github.com/servora/servora/internal/interfaces/cli/user"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "servora",
		Short: "Servora - IT service management ticket engine",
		Long:  `Servora tracks incidents, problems and changes through their lifecycles, with a server, migration tools and user administration commands.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
		user.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
