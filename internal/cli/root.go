package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/config"
)

// DefaultActor is recorded as the author of CLI mutations unless --actor is given.
const DefaultActor = "cli"

func NewRootCmd(version string) *cobra.Command {
	var (
		homeOverride string
		logLevel     string
		actorID      string
	)

	cmd := &cobra.Command{
		Use:          "taskflow",
		Short:        "taskflow: project tasks with automation rules and recurring work",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			home, err := config.ResolveHome(homeOverride)
			if err != nil {
				return err
			}
			settings, err := config.LoadSettings(home)
			if err != nil {
				return err
			}
			if logLevel != "" {
				if _, err := config.ParseLogLevel(logLevel); err != nil {
					return err
				}
				settings.LogLevel = logLevel
			}
			config.InstallLogger(cmd.ErrOrStderr(), settings)

			ctx := config.WithHome(cmd.Context(), home)
			ctx = config.WithSettings(ctx, settings)
			ctx = withActor(ctx, actorID)
			cmd.SetContext(ctx)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeOverride, "home", "", "Override taskflow home directory (default: ~/.taskflow, env: TASKFLOW_HOME)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	cmd.PersistentFlags().StringVar(&actorID, "actor", DefaultActor, "User ID recorded as the actor of changes")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())

	cmd.AddCommand(newProjectCmd())
	cmd.AddCommand(newSectionCmd())
	cmd.AddCommand(newUserCmd())
	cmd.AddCommand(newFieldCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newRuleCmd())

	cmd.AddCommand(newApikeyCmd())
	cmd.AddCommand(newNukeCmd())

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.SetVersionTemplate("{{.Version}}\n")
	if version != "" {
		cmd.Version = version
	} else {
		cmd.Version = "dev"
	}

	return cmd
}
