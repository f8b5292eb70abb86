package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

func newProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(newProjectAddCmd())
	cmd.AddCommand(newProjectListCmd())
	cmd.AddCommand(newProjectRemoveCmd())
	return cmd
}

func newProjectAddCmd() *cobra.Command {
	var name string
	var sections []string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a project (optionally with --section names, in order)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			p, err := st.CreateProject(cmd.Context(), name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created project %q (%s)\n", p.Name, p.ProjectID)
			for _, s := range sections {
				sec, err := st.CreateSection(cmd.Context(), p.ProjectID, s)
				if err != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Warning: could not add section %q: %v\n", s, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added section %q (%s)\n", sec.Name, sec.SectionID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name")
	cmd.Flags().StringSliceVar(&sections, "section", nil, "Section to create (repeatable)")
	return cmd
}

func newProjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			projects, err := st.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No projects")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, headingStyle.Render("ID")+"\t"+headingStyle.Render("NAME")+"\t"+headingStyle.Render("TASKS")+"\t"+headingStyle.Render("RULES"))
			for _, p := range projects {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", p.ProjectID, p.Name, p.TaskCount, p.RuleCount)
			}
			return w.Flush()
		},
	}
}

func newProjectRemoveCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete a project with its sections, fields and rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return errors.New("--project is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteProject(cmd.Context(), projectID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed project %s\n", projectID)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	return cmd
}

func newSectionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Manage project sections",
	}
	var projectID, name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Append a section to a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || name == "" {
				return errors.New("--project and --name are required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			sec, err := st.CreateSection(cmd.Context(), projectID, name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added section %q (%s) at position %d\n", sec.Name, sec.SectionID, sec.Position)
			return nil
		},
	}
	add.Flags().StringVar(&projectID, "project", "", "Project ID")
	add.Flags().StringVar(&name, "name", "", "Section name")

	var listProject string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a project's sections in board order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listProject == "" {
				return errors.New("--project is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			sections, err := st.ListSections(cmd.Context(), listProject)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range sections {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", s.Position, s.SectionID, s.Name)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&listProject, "project", "", "Project ID")

	cmd.AddCommand(add, list)
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	var name string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return errors.New("--name is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			u, err := st.CreateUser(cmd.Context(), name)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created user %q (%s)\n", u.DisplayName, u.UserID)
			return nil
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, u := range users {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", u.UserID, u.DisplayName)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newFieldCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "field",
		Short: "Manage project custom fields",
	}
	var projectID, name, fieldType string
	add := &cobra.Command{
		Use:   "add",
		Short: "Define a custom field on a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || name == "" {
				return errors.New("--project and --name are required")
			}
			if !validFieldType(fieldType) {
				return fmt.Errorf("--type must be one of text, number, date, select; got %q", fieldType)
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			f, err := st.CreateCustomField(cmd.Context(), projectID, name, fieldType)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Added %s field %q (%s)\n", f.FieldType, f.Name, f.FieldID)
			return nil
		},
	}
	add.Flags().StringVar(&projectID, "project", "", "Project ID")
	add.Flags().StringVar(&name, "name", "", "Field name")
	add.Flags().StringVar(&fieldType, "type", models.FieldTypeText, "Field type: text, number, date, select")

	var listProject string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a project's custom fields",
		RunE: func(cmd *cobra.Command, args []string) error {
			if listProject == "" {
				return errors.New("--project is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			fields, err := st.ListCustomFields(cmd.Context(), listProject)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, f := range fields {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", f.FieldID, f.Name, f.FieldType)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&listProject, "project", "", "Project ID")

	cmd.AddCommand(add, list)
	return cmd
}

func validFieldType(t string) bool {
	switch t {
	case models.FieldTypeText, models.FieldTypeNumber, models.FieldTypeDate, models.FieldTypeSelect:
		return true
	}
	return false
}

// sectionByName resolves a section name or ID within a project.
func sectionByName(sections []store.Section, nameOrID string) (string, bool) {
	for _, s := range sections {
		if s.SectionID == nameOrID || s.Name == nameOrID {
			return s.SectionID, true
		}
	}
	return "", false
}
