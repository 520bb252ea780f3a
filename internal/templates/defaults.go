package templates

import "tasknotify/internal/domain"

// Built-in template ids.
const (
	TaskAssignmentID   = "task_assignment"
	TaskReminderID     = "task_reminder"
	DocumentApprovalID = "document_approval"
	TaskCompletionID   = "task_completion"
	TaskApprovedID     = "task_approved"
	TaskRejectedID     = "task_rejected"
)

// Defaults returns the built-in WhatsApp templates.
func Defaults() []Template {
	return []Template{
		{
			ID:       TaskAssignmentID,
			Name:     "Task Assignment",
			Category: domain.CategoryAssignment,
			Body: `🚀 *New Task Assigned!*

*Task:* {taskName}
*Department:* {department}
*Due Date:* {dueDate}
*Priority:* {priority}

*Instructions:*
{instructions}

Please check the portal for more details and attached documents.

Best regards,
{organizationName}`,
			RequiredVariables: []string{"taskName", "department", "dueDate", "priority", "instructions", "organizationName"},
		},
		{
			ID:       TaskReminderID,
			Name:     "Task Reminder",
			Category: domain.CategoryReminder,
			Body: `⏰ *Task Reminder*

*Task:* {taskName}
*Due Date:* {dueDate}
*Status:* {status}

{dueSummary}

Thank you,
{organizationName}`,
			RequiredVariables: []string{"taskName", "dueDate", "status", "dueSummary", "organizationName"},
		},
		{
			ID:       DocumentApprovalID,
			Name:     "Document Approval",
			Category: domain.CategoryApproval,
			Body: `✅ *Document Ready for Approval*

*Document:* {documentName}
*Activity:* {activityName}
*Submitted By:* {submittedBy}

Please review and approve this document at your earliest convenience.

Best regards,
{organizationName}`,
			RequiredVariables: []string{"documentName", "activityName", "submittedBy", "organizationName"},
		},
		{
			ID:       TaskCompletionID,
			Name:     "Task Completion",
			Category: domain.CategoryCompletion,
			Body: `🎉 *Task Completed!*

*Task:* {taskName}
*Completed By:* {completedBy}
*Completion Date:* {completionDate}
*Documents:* {documentCount}

The task has been submitted for your review.

Best regards,
{organizationName}`,
			RequiredVariables: []string{"taskName", "completedBy", "completionDate", "documentCount", "organizationName"},
		},
		{
			ID:       TaskApprovedID,
			Name:     "Task Approved",
			Category: domain.CategoryApproval,
			Body: `✅ *Task Approved*

*Task:* {taskName}

Great work! Your task submission has been approved. Thank you for your excellent work!

{organizationName}`,
			RequiredVariables: []string{"taskName", "organizationName"},
		},
		{
			ID:       TaskRejectedID,
			Name:     "Task Needs Revision",
			Category: domain.CategoryApproval,
			Body: `❌ *Revision Requested*

*Task:* {taskName}
*Due Date:* {dueDate}

Your task submission needs revision. Feedback: {feedback}

{organizationName}`,
			RequiredVariables: []string{"taskName", "dueDate", "feedback", "organizationName"},
		},
	}
}

// NewDefaultCatalog returns a catalog preloaded with Defaults.
func NewDefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, t := range Defaults() {
		// ids in Defaults are distinct
		_ = c.Register(t)
	}
	return c
}
