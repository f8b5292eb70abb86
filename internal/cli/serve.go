package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/capabilities"
	"github.com/sravan-boop/taskflow/internal/config"
	"github.com/sravan-boop/taskflow/internal/daemon"
)

const defaultPprofAddr = "127.0.0.1:6060"

func newServeCmd() *cobra.Command {
	var (
		addr       string
		detach     bool
		dev        bool
		pprofAddr  string
		envFile    string
		seedDemo   bool
		enableOtel bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the due-date scanner",
		RunE: func(cmd *cobra.Command, args []string) error {
			if envFile != "" {
				if err := loadEnvFile(envFile); err != nil {
					return err
				}
			}
			home := config.MustHomeFrom(cmd.Context())
			// Re-read so that --env-file values apply.
			settings, err := config.LoadSettings(home)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = settings.Addr
			}
			if pprofAddr == "" && settings.Pprof {
				pprofAddr = defaultPprofAddr
			}

			opts := daemon.StartOptions{
				Home:          home,
				Addr:          addr,
				Dev:           dev,
				PprofAddr:     pprofAddr,
				APIKey:        settings.APIKey,
				DBDriver:      settings.DBDriver,
				DBURL:         settings.DBURL,
				SeedDemo:      seedDemo,
				EnableOtel:    enableOtel,
				ScanInterval:  settings.ScanInterval,
				DueSoonWindow: settings.DueSoonWindow,
				Capabilities:  capabilities.FromSettings(settings),
			}

			if !detach {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving taskflow on http://%s\n", addr)
				return daemon.StartForeground(cmd.Context(), opts)
			}
			pid, err := daemon.StartBackground(cmd.Context(), opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "taskflow started (pid %d) on http://%s\n", pid, addr)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, "+config.DefaultAddr+")")
	cmd.Flags().BoolVar(&detach, "detach", false, "Run in the background")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable dev mode (permissive CORS)")
	cmd.Flags().StringVar(&pprofAddr, "pprof", "", "Enable pprof on address (e.g. "+defaultPprofAddr+")")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Load env vars from file (KEY=VALUE per line) before starting")
	cmd.Flags().BoolVar(&seedDemo, "seed-demo", false, "Create a \"Getting started\" project when the store is empty")
	cmd.Flags().BoolVar(&enableOtel, "otel", true, "Enable OpenTelemetry metrics (/metrics) and tracing")

	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running taskflow daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			stopped, err := daemon.Stop(cmd.Context(), home)
			if err != nil {
				return err
			}
			if !stopped {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "taskflow is not running")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Stopped")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show taskflow daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			home := config.MustHomeFrom(cmd.Context())
			st, err := daemon.Status(cmd.Context(), home)
			if err != nil {
				return err
			}
			if !st.Running {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "taskflow not running")
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "taskflow running (pid %d, addr %s)\n", st.PID, st.Addr)
			return nil
		},
	}
}
