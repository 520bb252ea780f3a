package main

import (
	"os"

	"github.com/spf13/cobra"
)

type commandContext struct {
	server string
	json   bool
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(c.server)
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage tasks and notifications through the tasknotify API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultServer := os.Getenv("TASKNOTIFY_API")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&ctx.server, "server", defaultServer, "tasknotify API base URL")
	rootCmd.PersistentFlags().BoolVar(&ctx.json, "json", false, "Print raw JSON")

	rootCmd.AddCommand(newTemplatesCommand(ctx))
	rootCmd.AddCommand(newDispatchCommand(ctx))
	rootCmd.AddCommand(newDeliveryCommand(ctx))
	rootCmd.AddCommand(newTaskCommand(ctx))
	rootCmd.AddCommand(newChannelCommand(ctx))

	return rootCmd
}
