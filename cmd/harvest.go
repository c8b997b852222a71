// File: cmd/harvest.go
package cmd

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/veyrune/hivecrawl/internal/auth"
	"github.com/veyrune/hivecrawl/internal/browser"
	"github.com/veyrune/hivecrawl/internal/community"
	"github.com/veyrune/hivecrawl/internal/config"
	"github.com/veyrune/hivecrawl/internal/contentstore"
	"github.com/veyrune/hivecrawl/internal/engine"
	"github.com/veyrune/hivecrawl/internal/fingerprint"
	"github.com/veyrune/hivecrawl/internal/observability"
	"github.com/veyrune/hivecrawl/internal/sessionstore"
)

// newHarvestCmd creates the `harvest` command, which runs one full
// harvesting pass over the given community URLs.
func newHarvestCmd(cfg *config.Config) *cobra.Command {
	harvestCmd := &cobra.Command{
		Use:   "harvest [community-urls...]",
		Short: "Harvests content from the given community URLs with one persisted identity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			if cmd.Flags().Changed("headless") {
				cfg.Browser.Headless, _ = cmd.Flags().GetBool("headless")
			}
			if cmd.Flags().Changed("max-posts") {
				cfg.Harvest.MaxPostsPerCommunity, _ = cmd.Flags().GetInt("max-posts")
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			// Persistence is optional; without a database the run still
			// exercises the site but keeps nothing.
			var content engine.ContentStore = engine.NopContentStore{}
			if cfg.Database.URL != "" {
				dbPool, err := pgxpool.New(ctx, cfg.Database.URL)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer dbPool.Close()

				store, err := contentstore.New(ctx, dbPool, logger)
				if err != nil {
					return fmt.Errorf("failed to initialize content store: %w", err)
				}
				content = store
			} else {
				logger.Warn("No database configured; harvested records will not be persisted.")
			}

			sessions, err := sessionstore.New(cfg.Session, logger)
			if err != nil {
				return fmt.Errorf("failed to open session store: %w", err)
			}

			gen := fingerprint.NewGenerator(nil)
			runtime := browser.NewRuntime(cfg, gen, nil, logger)
			controller := auth.NewController(cfg.Site, logger)
			navigator := community.NewNavigator(controller, logger)

			eng := engine.New(
				cfg,
				engine.WrapRuntime(runtime),
				sessions,
				navigator,
				controller,
				engine.PassthroughStructurer{},
				content,
				gen,
				nil,
				logger,
			)

			// The run goes through an errgroup so a signal on the root
			// context tears it down while cleanup still executes.
			g, runCtx := errgroup.WithContext(ctx)
			var report *engine.RunReport
			g.Go(func() error {
				var runErr error
				report, runErr = eng.Run(runCtx, args)
				return runErr
			})

			runErr := g.Wait()
			if report != nil {
				printReport(report)
			}
			if runErr != nil {
				logger.Error("Harvest run failed", zap.Error(runErr))
				return runErr
			}
			return nil
		},
	}

	harvestCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	harvestCmd.Flags().Int("max-posts", 0, "Maximum posts per community. (Overrides config/env)")

	return harvestCmd
}

func printReport(report *engine.RunReport) {
	fmt.Printf("\nHarvest complete. Session: %s\n", report.SessionID)
	fmt.Printf("  Communities visited:  %d\n", report.CommunitiesVisited)
	fmt.Printf("  Communities skipped:  %d\n", report.CommunitiesSkipped)
	fmt.Printf("  Invalid URLs:         %d\n", report.InvalidURLs)
	fmt.Printf("  Posts extracted:      %d\n", report.PostsExtracted)
	fmt.Printf("  Records saved:        %d\n", report.RecordsSaved)
	fmt.Printf("  Records unchanged:    %d\n", report.RecordsUnchanged)
}
