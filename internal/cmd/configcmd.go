package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"go-jiractl/internal/config"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Interactive configuration setup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := config.RunSetup()
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the jiractl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("jiractl version", Version)
		},
	}
}
