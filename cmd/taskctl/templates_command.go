package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"tasknotify/internal/domain"
	"tasknotify/internal/templates"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Inspect message templates",
	}
	cmd.AddCommand(newTemplatesListCommand(ctx))
	cmd.AddCommand(newTemplatesRenderCommand(ctx))
	return cmd
}

func newTemplatesListCommand(ctx *commandContext) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List templates, optionally by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := fetchTemplates(cmd, ctx, category)
			if err != nil {
				return err
			}
			if ctx.json {
				return writeJSON(cmd.OutOrStdout(), list)
			}

			rows := make([][]string, 0, len(list))
			for _, t := range list {
				rows = append(rows, []string{t.ID, t.Name, string(t.Category), strings.Join(t.RequiredVariables, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"ID", "Name", "Category", "Variables"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Filter by category (assignment, reminder, approval, completion)")
	return cmd
}

func newTemplatesRenderCommand(ctx *commandContext) *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "render <template-id>",
		Short: "Render a template locally with the given variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			variables, err := parseVars(vars)
			if err != nil {
				return err
			}

			list, err := fetchTemplates(cmd, ctx, "")
			if err != nil {
				return err
			}
			for _, t := range list {
				if t.ID != args[0] {
					continue
				}
				body, err := templates.Render(t, variables)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), body)
				return nil
			}
			return fmt.Errorf("template %q: %w", args[0], domain.ErrTemplateNotFound)
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Template variable as name=value (repeatable)")
	return cmd
}

func fetchTemplates(cmd *cobra.Command, ctx *commandContext, category string) ([]templates.Template, error) {
	path := "/templates"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}

	var list []templates.Template
	if err := ctx.client().do(cmd.Context(), http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// parseVars turns name=value pairs into a variable map.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, errors.New("variables must be name=value, got " + p)
		}
		vars[name] = value
	}
	return vars, nil
}
