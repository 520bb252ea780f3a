package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"tasknotify/internal/api/models"
	"tasknotify/internal/domain"
)

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	var (
		recipients []string
		vars       []string
		priority   string
	)

	cmd := &cobra.Command{
		Use:   "dispatch <template-id>",
		Short: "Send one template to many recipients",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := parseVars(vars)
			if err != nil {
				return err
			}

			req := models.DispatchRequest{
				TemplateID: args[0],
				Variables:  variables,
				Recipients: recipients,
				Priority:   domain.Priority(priority),
			}
			if err := req.Validate(); err != nil {
				return err
			}

			var resp models.DispatchResponse
			if err := ctx.client().do(cmd.Context(), http.MethodPost, "/dispatch", req, &resp); err != nil {
				return err
			}
			if ctx.json {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printResults(cmd.OutOrStdout(), resp.Results)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&recipients, "to", nil, "Recipients (comma separated or repeated)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Template variable as name=value (repeatable)")
	cmd.Flags().StringVar(&priority, "priority", "", "Message priority (low, medium, high)")
	return cmd
}

func newDeliveryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delivery <delivery-id>",
		Short: "Show where a dispatched message is now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var status domain.DeliveryStatus
			if err := ctx.client().do(cmd.Context(), http.MethodGet, "/deliveries/"+url.PathEscape(args[0]), nil, &status); err != nil {
				return err
			}
			if ctx.json {
				return writeJSON(cmd.OutOrStdout(), status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%s)\n", status.DeliveryID, status.State, status.Recipient)
			return nil
		},
	}
}
