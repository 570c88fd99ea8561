package weeklypreview

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/igorsilveira/weeklypreview/pkg/audit"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View the audit log",
	RunE:  runAudit,
}

var (
	auditEventType string
	auditTaskID    string
	auditAgentID   string
	auditLimit     int
	auditSince     string
)

func init() {
	auditCmd.Flags().StringVar(&auditEventType, "type", "", "filter by event type (e.g. workflow_done, a2a_task_fail)")
	auditCmd.Flags().StringVar(&auditTaskID, "task", "", "filter by task ID")
	auditCmd.Flags().StringVar(&auditAgentID, "agent", "", "filter by agent ID (e.g. calendar-001)")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "maximum number of entries")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "show entries since (e.g. 2025-02-17)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.Audit.Path); err != nil {
		return fmt.Errorf("no audit log at %s (enable [audit] in the config)", cfg.Audit.Path)
	}

	auditLog, err := audit.Open(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer func() { _ = auditLog.Close() }()

	filter := audit.Filter{
		EventType: auditEventType,
		TaskID:    auditTaskID,
		AgentID:   auditAgentID,
		Limit:     auditLimit,
	}
	if auditSince != "" {
		t, err := time.Parse("2006-01-02", auditSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use YYYY-MM-DD): %w", err)
		}
		filter.Since = t
	}

	entries, err := auditLog.Query(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("querying audit log: %w", err)
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printEntries(w io.Writer, entries []audit.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No audit entries found.")
		return
	}
	for _, e := range entries {
		ts := e.Timestamp.Format("2006-01-02 15:04:05")
		fmt.Fprintf(w, "[%s] %-15s task=%-36s agent=%-18s actor=%-12s %s\n",
			ts, e.EventType, e.TaskID, e.AgentID, e.Actor, e.Detail,
		)
	}
	fmt.Fprintf(w, "\n%d entries\n", len(entries))
}
