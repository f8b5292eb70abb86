package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/config"
	"github.com/sravan-boop/taskflow/internal/daemon"
)

func newDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and store connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			home := config.MustHomeFrom(ctx)
			settings := config.SettingsFrom(ctx)
			out := cmd.OutOrStdout()

			var problems []string

			_, _ = fmt.Fprintln(out, field("home", home))
			_, _ = fmt.Fprintln(out, field("config", config.ConfigPath(home)))
			_, _ = fmt.Fprintln(out, field("store", settings.DBDriver))
			_, _ = fmt.Fprintln(out, field("daemon log", daemon.LayoutFor(home).Log))

			st, err := openStore(cmd)
			if err != nil {
				problems = append(problems, fmt.Sprintf("store: %v", err))
			} else {
				if _, err := st.ListProjects(ctx); err != nil {
					problems = append(problems, fmt.Sprintf("store query: %v", err))
				}
				_ = st.Close()
			}

			if ds, err := daemon.Status(ctx, home); err == nil && ds.Running {
				_, _ = fmt.Fprintln(out, field("daemon", fmt.Sprintf("running (pid %d, addr %s)", ds.PID, ds.Addr)))
			} else {
				_, _ = fmt.Fprintln(out, field("daemon", "not running"))
			}

			if len(problems) > 0 {
				for _, p := range problems {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), p)
				}
				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "ok")
			return nil
		},
	}
	return cmd
}
