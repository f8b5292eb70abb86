package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/internal/tasks"
	"github.com/sravan-boop/taskflow/pkg/models"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks (mutations run the project's automation rules)",
	}
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskShowCmd())
	cmd.AddCommand(newTaskMoveCmd())
	cmd.AddCommand(newTaskCompleteCmd())
	cmd.AddCommand(newTaskSetFieldCmd())
	cmd.AddCommand(newTaskUpdateCmd())
	cmd.AddCommand(newTaskCommentCmd())
	return cmd
}

func newTaskCreateCmd() *cobra.Command {
	var (
		projectID   string
		title       string
		section     string
		status      string
		assignee    string
		due         string
		start       string
		also        []string
		recur       string
		interval    int
		daysOfWeek  []int
		dayOfMonth  int
		recurUntil  string
		endAfterOcc int
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task in a project (optionally recurring)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || title == "" {
				return errors.New("--project and --title are required")
			}
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()

			in := tasks.CreateInput{Title: title, Status: status, ProjectID: projectID, AlsoProjects: also}
			if in.DueDate, err = parseDate(due); err != nil {
				return err
			}
			if in.StartDate, err = parseDate(start); err != nil {
				return err
			}
			if assignee != "" {
				in.AssigneeID = &assignee
			}
			if section != "" {
				sections, err := svc.Store.ListSections(ctx, projectID)
				if err != nil {
					return err
				}
				id, ok := sectionByName(sections, section)
				if !ok {
					return fmt.Errorf("section %q not found in project %s", section, projectID)
				}
				in.SectionID = &id
			}
			if recur != "" {
				rec := &store.Recurrence{Frequency: strings.ToUpper(recur), Interval: interval, DaysOfWeek: daysOfWeek}
				if cmd.Flags().Changed("day-of-month") {
					rec.DayOfMonth = &dayOfMonth
				}
				if cmd.Flags().Changed("end-after") {
					rec.EndAfterOccurrences = &endAfterOcc
				}
				if rec.EndDate, err = parseDate(recurUntil); err != nil {
					return err
				}
				in.Recurrence = rec
			}

			t, err := svc.CreateTask(ctx, actorFrom(ctx), in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created task %q (%s)\n", t.Title, t.TaskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&section, "section", "", "Section name or ID in --project")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (todo, in_progress, ...)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user ID")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().StringSliceVar(&also, "also-project", nil, "Also place the task in this project (repeatable)")
	cmd.Flags().StringVar(&recur, "recur", "", "Recurrence frequency: DAILY, WEEKLY, MONTHLY, YEARLY")
	cmd.Flags().IntVar(&interval, "interval", 1, "Recurrence interval (every N periods)")
	cmd.Flags().IntSliceVar(&daysOfWeek, "days-of-week", nil, "Weekly recurrence days, 0=Sunday (repeatable)")
	cmd.Flags().IntVar(&dayOfMonth, "day-of-month", 0, "Monthly recurrence day (clamped to month length)")
	cmd.Flags().StringVar(&recurUntil, "until", "", "Stop recurring after this date")
	cmd.Flags().IntVar(&endAfterOcc, "end-after", 0, "Recorded occurrence limit")
	return cmd
}

func newTaskListCmd() *cobra.Command {
	var projectID string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return errors.New("--project is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			list, err := st.ListProjectTasks(cmd.Context(), projectID, limit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, t := range list {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.TaskID, t.Status, formatDate(t.DueDate), t.Title)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	cmd.Flags().IntVar(&limit, "limit", models.DefaultTaskListLimit, "Max tasks")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a task with its placements, field values and comments",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return errors.New("--id is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			ctx := cmd.Context()

			t, err := st.GetTask(ctx, taskID)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("task %s not found", taskID)
			}
			comments, err := st.ListTaskComments(ctx, taskID)
			if err != nil {
				return err
			}
			printTask(cmd, t, comments)
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "id", "", "Task ID")
	return cmd
}

func printTask(cmd *cobra.Command, t *store.Task, comments []store.TaskComment) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, headingStyle.Render(t.Title))
	_, _ = fmt.Fprintln(out, field("id", t.TaskID))
	_, _ = fmt.Fprintln(out, field("status", t.Status))
	assignee := deref(t.AssigneeID)
	if t.AssigneeName != nil {
		assignee += " (" + *t.AssigneeName + ")"
	}
	_, _ = fmt.Fprintln(out, field("assignee", assignee))
	_, _ = fmt.Fprintln(out, field("due", formatDate(t.DueDate)))
	_, _ = fmt.Fprintln(out, field("start", formatDate(t.StartDate)))
	if t.CompletedAt != nil {
		_, _ = fmt.Fprintln(out, field("completed", formatDate(t.CompletedAt)))
	}
	if t.Recurrence != nil {
		r := t.Recurrence
		desc := fmt.Sprintf("%s every %d", r.Frequency, max(r.Interval, 1))
		if len(r.DaysOfWeek) > 0 {
			desc += fmt.Sprintf(" on days %v", r.DaysOfWeek)
		}
		if r.DayOfMonth != nil {
			desc += fmt.Sprintf(" on day %d", *r.DayOfMonth)
		}
		if r.EndDate != nil {
			desc += " until " + formatDate(r.EndDate)
		}
		_, _ = fmt.Fprintln(out, field("recurs", desc))
	}
	for _, p := range t.Placements {
		_, _ = fmt.Fprintln(out, field("project", p.ProjectID+" / "+deref(p.SectionName)))
	}
	for _, v := range t.FieldValues {
		val := deref(v.TextValue)
		if v.NumberValue != nil {
			val = fmt.Sprintf("%g", *v.NumberValue)
		}
		_, _ = fmt.Fprintln(out, field(v.FieldName, val))
	}
	if len(comments) > 0 {
		_, _ = fmt.Fprintln(out, headingStyle.Render("Comments"))
		for _, c := range comments {
			_, _ = fmt.Fprintf(out, "  %s %s: %s\n", labelStyle.Render(c.CreatedAt.Format("2006-01-02 15:04")), c.AuthorID, c.Body)
		}
	}
}

func newTaskMoveCmd() *cobra.Command {
	var taskID, projectID, section string
	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move a task to a section of one of its projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" || projectID == "" || section == "" {
				return errors.New("--id, --project, and --section are required")
			}
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()

			sections, err := svc.Store.ListSections(ctx, projectID)
			if err != nil {
				return err
			}
			sectionID, ok := sectionByName(sections, section)
			if !ok {
				return fmt.Errorf("section %q not found in project %s", section, projectID)
			}
			if err := svc.MoveTask(ctx, actorFrom(ctx), taskID, projectID, sectionID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Moved task %s to %q\n", taskID, section)
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "id", "", "Task ID")
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	cmd.Flags().StringVar(&section, "section", "", "Target section name or ID")
	return cmd
}

func newTaskCompleteCmd() *cobra.Command {
	var taskID string
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Mark a task done (spawns the next occurrence of a recurring task)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return errors.New("--id is required")
			}
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()

			next, err := svc.CompleteTask(ctx, actorFrom(ctx), taskID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Task %s marked done\n", taskID)
			if next != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Next occurrence: %s\n", next)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "id", "", "Task ID")
	return cmd
}

func newTaskSetFieldCmd() *cobra.Command {
	var taskID, fieldID, text string
	var number float64
	cmd := &cobra.Command{
		Use:   "set-field",
		Short: "Set a custom field value (--text or --number)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" || fieldID == "" {
				return errors.New("--id and --field are required")
			}
			var tp *string
			var np *float64
			if cmd.Flags().Changed("text") {
				tp = &text
			}
			if cmd.Flags().Changed("number") {
				np = &number
			}
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()

			if err := svc.SetFieldValue(ctx, actorFrom(ctx), taskID, fieldID, tp, np); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Set field %s on task %s\n", fieldID, taskID)
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "id", "", "Task ID")
	cmd.Flags().StringVar(&fieldID, "field", "", "Custom field ID")
	cmd.Flags().StringVar(&text, "text", "", "Text value")
	cmd.Flags().Float64Var(&number, "number", 0, "Number value")
	cmd.MarkFlagsMutuallyExclusive("text", "number")
	return cmd
}

func newTaskUpdateCmd() *cobra.Command {
	var taskID, status, assignee, due string
	var clearDue bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change status, assignee or due date (no rules run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" {
				return errors.New("--id is required")
			}
			var in tasks.UpdateInput
			if cmd.Flags().Changed("status") {
				in.Status = &status
			}
			if cmd.Flags().Changed("assignee") {
				in.AssigneeID = &assignee
			}
			d, err := parseDate(due)
			if err != nil {
				return err
			}
			in.DueDate = d
			in.ClearDueDate = clearDue

			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			t, err := svc.UpdateTask(cmd.Context(), taskID, in)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s (status %s, due %s)\n", t.TaskID, t.Status, formatDate(t.DueDate))
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "id", "", "Task ID")
	cmd.Flags().StringVar(&status, "status", "", "New status (use task complete to finish)")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user ID (empty to unassign)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC 3339)")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	cmd.MarkFlagsMutuallyExclusive("due", "clear-due")
	return cmd
}

func newTaskCommentCmd() *cobra.Command {
	var taskID, body string
	cmd := &cobra.Command{
		Use:   "comment",
		Short: "Comment on a task as --actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			if taskID == "" || body == "" {
				return errors.New("--id and --body are required")
			}
			svc, closeFn, err := openService(cmd)
			if err != nil {
				return err
			}
			defer closeFn()
			ctx := cmd.Context()

			id, err := svc.AddComment(ctx, actorFrom(ctx), taskID, body)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added comment %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&taskID, "id", "", "Task ID")
	cmd.Flags().StringVar(&body, "body", "", "Comment text")
	return cmd
}
