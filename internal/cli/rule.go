package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/automation"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/pkg/models"
)

func newRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage project automation rules",
	}
	cmd.AddCommand(newRuleListCmd())
	cmd.AddCommand(newRuleImportCmd())
	cmd.AddCommand(newRuleExportCmd())
	cmd.AddCommand(newRuleActiveCmd("enable", "Enable a rule", true))
	cmd.AddCommand(newRuleActiveCmd("disable", "Disable a rule; it stays listed but never runs", false))
	cmd.AddCommand(newRuleDeleteCmd())
	cmd.AddCommand(newRuleLogsCmd())
	return cmd
}

func newRuleListCmd() *cobra.Command {
	var projectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a project's rules in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return errors.New("--project is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			rules, err := st.ListRules(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No rules")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range rules {
				state := "active"
				if !r.IsActive {
					state = "inactive"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.RuleID, r.TriggerType, state, r.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	return cmd
}

func newRuleImportCmd() *cobra.Command {
	var projectID, file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create rules from a YAML rule file (--file - reads stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" || file == "" {
				return errors.New("--project and --file are required")
			}
			var r io.Reader = cmd.InOrStdin()
			if file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				r = f
			}
			rs, err := automation.LoadRuleSet(r)
			if err != nil {
				return err
			}

			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			ctx := cmd.Context()

			p, err := st.GetProject(ctx, projectID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("project %s: %w", projectID, store.ErrNotFound)
			}
			for _, spec := range rs.Rules {
				rule, err := spec.ToRule(projectID, actorFrom(ctx))
				if err != nil {
					return err
				}
				id, err := st.CreateRule(ctx, rule)
				if err != nil {
					return fmt.Errorf("create rule %q: %w", spec.Name, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported rule %q (%s)\n", spec.Name, id)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	cmd.Flags().StringVar(&file, "file", "", "Rule file path, or - for stdin")
	return cmd
}

func newRuleExportCmd() *cobra.Command {
	var projectID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a project's rules as a YAML rule file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return errors.New("--project is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			rules, err := st.ListRules(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			rs := &automation.RuleSet{}
			for _, r := range rules {
				spec, err := automation.SpecFromRule(r)
				if err != nil {
					return fmt.Errorf("rule %s: %w", r.RuleID, err)
				}
				rs.Rules = append(rs.Rules, spec)
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			return automation.WriteRuleSet(w, rs)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "Project ID")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default stdout)")
	return cmd
}

func newRuleActiveCmd(use, short string, active bool) *cobra.Command {
	var ruleID string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ruleID == "" {
				return errors.New("--id is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.SetRuleActive(cmd.Context(), ruleID, active); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Rule %s %sd\n", ruleID, use)
			return nil
		},
	}
	cmd.Flags().StringVar(&ruleID, "id", "", "Rule ID")
	return cmd
}

func newRuleDeleteCmd() *cobra.Command {
	var ruleID string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a rule and its execution log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ruleID == "" {
				return errors.New("--id is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.DeleteRule(cmd.Context(), ruleID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted rule %s\n", ruleID)
			return nil
		},
	}
	cmd.Flags().StringVar(&ruleID, "id", "", "Rule ID")
	return cmd
}

func newRuleLogsCmd() *cobra.Command {
	var ruleID string
	var limit int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show a rule's execution log, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ruleID == "" {
				return errors.New("--id is required")
			}
			st, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			ctx := cmd.Context()

			r, err := st.GetRule(ctx, ruleID)
			if err != nil {
				return err
			}
			if r == nil {
				return fmt.Errorf("rule %s: %w", ruleID, store.ErrNotFound)
			}
			execs, err := st.ListRuleExecutions(ctx, ruleID, limit)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), headingStyle.Render(r.Name))
			if len(execs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No executions")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range execs {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Format("2006-01-02 15:04:05"), executionStatus(e.Status), e.TaskID, deref(e.Message))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&ruleID, "id", "", "Rule ID")
	cmd.Flags().IntVar(&limit, "limit", models.DefaultExecutionListLimit, "Max entries")
	return cmd
}
