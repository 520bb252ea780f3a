package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tasknotify/internal/api/models"
	"tasknotify/internal/domain"
	"tasknotify/internal/ports"
)

func newTaskCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Assign tasks and drive their lifecycle",
	}

	cmd.AddCommand(newTaskGetCommand(ctx))
	cmd.AddCommand(newTaskDeliveriesCommand(ctx))
	cmd.AddCommand(newTaskAssignCommand(ctx))
	cmd.AddCommand(newTaskSubmitCommand(ctx))
	cmd.AddCommand(newTaskRejectCommand(ctx))
	cmd.AddCommand(newTaskProgressCommand(ctx))
	cmd.AddCommand(newTaskActionCommand(ctx, "start", "Start working on a task"))
	cmd.AddCommand(newTaskActionCommand(ctx, "approve", "Approve a submitted task"))
	cmd.AddCommand(newTaskActionCommand(ctx, "remind", "Send a reminder for a task now"))

	return cmd
}

func newTaskGetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "get <task-id>",
		Short: "Show a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var task domain.Task
			if err := ctx.client().do(cmd.Context(), http.MethodGet, taskPath(args[0], ""), nil, &task); err != nil {
				return err
			}
			if ctx.json {
				return writeJSON(cmd.OutOrStdout(), task)
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
}

func newTaskDeliveriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deliveries <task-id>",
		Short: "Show the notification history of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var entries []ports.DeliveryEntry
			if err := ctx.client().do(cmd.Context(), http.MethodGet, taskPath(args[0], "deliveries"), nil, &entries); err != nil {
				return err
			}
			if ctx.json {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No deliveries recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				status := "failed"
				if e.Succeeded {
					status = "sent"
				}
				rows = append(rows, []string{
					e.SentAt.Format(time.RFC3339), e.Event, e.TemplateID, e.Recipient, status, e.DeliveryID, e.Failure,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Sent At", "Event", "Template", "Recipient", "Status", "Delivery ID", "Failure"}, rows))
			return nil
		},
	}
}

func newTaskAssignCommand(ctx *commandContext) *cobra.Command {
	var (
		req models.AssignRequest
		due string
	)

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign a new task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if due != "" {
				dueAt, err := time.Parse(time.RFC3339, due)
				if err != nil {
					return fmt.Errorf("invalid --due: %w", err)
				}
				req.DueAt = dueAt
			}
			if err := req.Validate(); err != nil {
				return err
			}
			return runTaskCommand(cmd, ctx, "", "", req)
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "Task id (generated when empty)")
	cmd.Flags().StringVar(&req.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&req.Description, "description", "", "Task instructions")
	cmd.Flags().StringVar(&req.Department, "department", "", "Department")
	cmd.Flags().StringVar(&req.AssignedTo, "assignee", "", "Assignee contact")
	cmd.Flags().StringVar(&req.AssignedBy, "assigner", "", "Assigner contact")
	cmd.Flags().StringVar(&due, "due", "", "Due date (RFC3339)")
	cmd.Flags().StringVar((*string)(&req.Priority), "priority", "", "Priority (low, medium, high)")
	return cmd
}

func newTaskSubmitCommand(ctx *commandContext) *cobra.Command {
	var docs []string

	cmd := &cobra.Command{
		Use:   "submit <task-id>",
		Short: "Submit documents for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := models.SubmitRequest{Documents: make([]models.DocumentRequest, 0, len(docs))}
			for _, name := range docs {
				req.Documents = append(req.Documents, models.DocumentRequest{Name: name})
			}
			return runTaskCommand(cmd, ctx, args[0], "submit", req)
		},
	}

	cmd.Flags().StringArrayVar(&docs, "doc", nil, "Document name (repeatable)")
	return cmd
}

func newTaskRejectCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <task-id>",
		Short: "Send a submission back for revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd, ctx, args[0], "reject", models.RejectRequest{Reason: reason})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Feedback for the assignee")
	return cmd
}

func newTaskProgressCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <task-id> <percent>",
		Short: "Report task progress",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			percent, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid percent %q", args[1])
			}
			return runTaskCommand(cmd, ctx, args[0], "progress", models.ProgressRequest{Percent: &percent})
		},
	}
}

func newTaskActionCommand(ctx *commandContext, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTaskCommand(cmd, ctx, args[0], action, nil)
		},
	}
}

// runTaskCommand posts a task command and prints the resulting task and
// notification results.
func runTaskCommand(cmd *cobra.Command, ctx *commandContext, taskID, action string, body any) error {
	var resp models.TaskResponse
	if err := ctx.client().do(cmd.Context(), http.MethodPost, taskPath(taskID, action), body, &resp); err != nil {
		return err
	}
	if ctx.json {
		return writeJSON(cmd.OutOrStdout(), resp)
	}

	out := cmd.OutOrStdout()
	printTask(out, resp.Task)
	printResults(out, resp.Results)
	if resp.NotificationError != "" {
		fmt.Fprintf(out, "Notification failed: %s\n", resp.NotificationError)
	}
	return nil
}

func taskPath(taskID, action string) string {
	if taskID == "" {
		return "/tasks"
	}
	path := "/tasks/" + url.PathEscape(taskID)
	if action != "" {
		path += "/" + action
	}
	return path
}

func printTask(w io.Writer, task domain.Task) {
	review := string(task.Review)
	if review == "" {
		review = "-"
	}
	due := "-"
	if !task.DueAt.IsZero() {
		due = task.DueAt.Format(time.RFC3339)
	}

	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, [][]string{
		{"ID", task.ID},
		{"Title", task.Title},
		{"State", string(task.State)},
		{"Review", review},
		{"Assignee", task.AssignedTo},
		{"Assigner", task.AssignedBy},
		{"Due", due},
		{"Priority", string(task.Priority)},
		{"Progress", fmt.Sprintf("%d%%", task.ProgressPercent)},
		{"Documents", strconv.Itoa(len(task.SubmittedDocuments))},
		{"Version", strconv.FormatInt(task.Version, 10)},
	}))
}
