package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/config"
	"github.com/sravan-boop/taskflow/internal/daemon"
)

const nukeConfirmation = "delete everything"

func newNukeCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "nuke",
		Short: "Delete the taskflow home: projects, tasks, rules, execution logs and config",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := config.MustHomeFrom(ctx)
			out := cmd.OutOrStdout()

			if st, _ := daemon.Status(ctx, home); st.Running {
				return fmt.Errorf("daemon is running (pid %d); run `taskflow stop` first", st.PID)
			}

			if !yes {
				_, _ = fmt.Fprintf(out, "This permanently deletes %s.\nType %q to confirm: ", home, nukeConfirmation)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				if strings.TrimSpace(line) != nukeConfirmation {
					_, _ = fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			if err := os.RemoveAll(home); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, "Deleted "+home)
			if config.SettingsFrom(ctx).DBDriver == "postgres" {
				_, _ = fmt.Fprintln(out, "The postgres database at db.url was not touched.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip the confirmation prompt")
	return cmd
}
