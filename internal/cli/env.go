package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sravan-boop/taskflow/internal/automation"
	"github.com/sravan-boop/taskflow/internal/capabilities"
	"github.com/sravan-boop/taskflow/internal/config"
	"github.com/sravan-boop/taskflow/internal/store"
	"github.com/sravan-boop/taskflow/internal/store/postgres"
	"github.com/sravan-boop/taskflow/internal/tasks"
	"github.com/sravan-boop/taskflow/pkg/models"
)

type actorKey struct{}

func withActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return DefaultActor
}

// openStore opens the store named by the settings in cmd's context.
func openStore(cmd *cobra.Command) (store.Store, error) {
	s := config.SettingsFrom(cmd.Context())
	if s.DBDriver == "postgres" {
		return postgres.Open(s.DBURL)
	}
	return store.Open(config.MustHomeFrom(cmd.Context()))
}

// openService opens the store and wires a task service around it. The returned close func
// waits for dispatched rule runs before closing the store.
func openService(cmd *cobra.Command) (*tasks.Service, func(), error) {
	st, err := openStore(cmd)
	if err != nil {
		return nil, nil, err
	}
	svc := tasks.New(st)
	reg := capabilities.FromSettings(config.SettingsFrom(cmd.Context()))
	if !reg.Empty() {
		runner := automation.NewRunner(st)
		runner.Notifier = reg
		svc.Dispatcher = automation.NewDispatcher(runner)
	}
	return svc, func() {
		svc.Wait()
		_ = st.Close()
	}, nil
}

// parseDate accepts 2006-01-02 (UTC midnight) or RFC 3339.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	t = t.UTC()
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339)
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
)

func executionStatus(status string) string {
	switch status {
	case models.ExecutionSuccess:
		return successStyle.Render(status)
	case models.ExecutionFailed:
		return failedStyle.Render(status)
	case models.ExecutionSkipped:
		return skippedStyle.Render(status)
	}
	return status
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-12s", label)) + " " + value
}

// loadEnvFile sets KEY=VALUE lines from path as environment variables.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		if key != "" {
			_ = os.Setenv(key, value)
		}
	}
	return sc.Err()
}
