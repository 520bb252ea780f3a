package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"tasknotify/internal/api/models"
)

func newChannelCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channel",
		Short: "Show or change the dispatch channel state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return channelRequest(cmd, ctx, http.MethodGet, "/channel")
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "connect",
		Short: "Connect the dispatch channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return channelRequest(cmd, ctx, http.MethodPost, "/channel/connect")
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "disconnect",
		Short: "Disconnect the dispatch channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return channelRequest(cmd, ctx, http.MethodPost, "/channel/disconnect")
		},
	})

	return cmd
}

func channelRequest(cmd *cobra.Command, ctx *commandContext, method, path string) error {
	var resp models.ChannelResponse
	if err := ctx.client().do(cmd.Context(), method, path, nil, &resp); err != nil {
		return err
	}
	if ctx.json {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", resp.Name, resp.State)
	return nil
}
