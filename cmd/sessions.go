// File: cmd/sessions.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veyrune/hivecrawl/internal/config"
	"github.com/veyrune/hivecrawl/internal/observability"
	"github.com/veyrune/hivecrawl/internal/sessionstore"
)

// newSessionsCmd creates the `sessions` command group for administering the
// persisted identity registry.
func newSessionsCmd(cfg *config.Config) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Administers the persisted browser identities",
	}

	openStore := func() (*sessionstore.Store, error) {
		return sessionstore.New(cfg.Session, observability.GetLogger())
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Shows registry totals and wear",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			stats := store.Stats()
			fmt.Printf("Sessions: %d total, %d active, %d blocked\n",
				stats.Total, stats.Active, stats.Blocked)
			fmt.Printf("Average use count: %.1f\n", stats.AverageUseCount)
			return nil
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Removes sessions past retention or the reuse ceiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			removed := store.CleanupOldSessions()
			fmt.Printf("Removed %d session(s).\n", removed)
			return nil
		},
	}

	blockCmd := &cobra.Command{
		Use:   "block [session-id]",
		Short: "Marks a session blocked so it is never handed out again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.MarkBlocked(args[0]); err != nil {
				return err
			}
			fmt.Printf("Session %s blocked.\n", args[0])
			return nil
		},
	}

	sessionsCmd.AddCommand(statsCmd, cleanupCmd, blockCmd)
	return sessionsCmd
}
