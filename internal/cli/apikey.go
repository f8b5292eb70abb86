package cli

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/config"
)

func newApikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage the key that guards the HTTP API",
	}
	cmd.AddCommand(newApikeyGenerateCmd())
	return cmd
}

func newApikeyGenerateCmd() *cobra.Command {
	var (
		envFile string
		save    bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a random API key, optionally saving it to config.yaml or an env file",
		RunE: func(cmd *cobra.Command, args []string) error {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			key := hex.EncodeToString(b)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s\n\n  %s\n\n", headingStyle.Render("API key (keep it secret)"), key)

			saved := false
			if save {
				home := config.MustHomeFrom(cmd.Context())
				if err := config.SaveSetting(home, config.KeyAPIKey, key); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Saved %s to %s; restart the daemon to apply it.\n", config.KeyAPIKey, config.ConfigPath(home))
				saved = true
			}
			if envFile != "" {
				if err := appendEnv(envFile, "TASKFLOW_API_KEY", key); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(out, "Appended TASKFLOW_API_KEY to %s. Start with: taskflow serve --env-file %s\n", envFile, envFile)
				saved = true
			}
			if !saved {
				_, _ = fmt.Fprintln(out, "Server: export TASKFLOW_API_KEY="+key+" (or rerun with --save)")
			}
			_, _ = fmt.Fprintln(out, "Clients: send header X-API-Key: <key> or query ?api_key=<key>")
			return nil
		},
	}
	cmd.Flags().BoolVar(&save, "save", false, "Write api_key into <home>/config.yaml")
	cmd.Flags().StringVar(&envFile, "env", "", "Append TASKFLOW_API_KEY to this file (e.g. .env)")
	return cmd
}

func appendEnv(path, name, value string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", name, value); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
