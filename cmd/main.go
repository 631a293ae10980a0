package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/integration-engine/internal/app"
	types "github.com/yungbote/integration-engine/internal/domain/integration"
	"github.com/yungbote/integration-engine/internal/platform/envutil"
	"github.com/yungbote/integration-engine/internal/platform/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "integration-engine",
		Short:         "Integration-centered progression engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), false)
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newReviewCmd(), newReviewsCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", envutil.Bool("AUTO_MIGRATE", false), "run migrations before serving")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(_ context.Context, a *app.App) error {
				if err := a.Migrate(); err != nil {
					return err
				}
				a.Log.Info("migrations complete")
				return nil
			})
		},
	}
}

func newReviewCmd() *cobra.Command {
	var (
		userFlag    string
		metricsPath string
		due         bool
		limit       int
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Re-evaluate bypassing severity for one user or for every user whose check is due",
		Example: `  integration-engine review --user 5b0c... --metrics metrics.json
  integration-engine review --due --limit 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if due == (userFlag != "") {
				return errors.New("pass exactly one of --user or --due")
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				out := json.NewEncoder(cmd.OutOrStdout())
				out.SetIndent("", "  ")
				if due {
					res, err := a.ReviewDue(ctx, time.Now().UTC(), limit, concurrency)
					if err != nil {
						return err
					}
					return out.Encode(res)
				}
				userID, err := uuid.Parse(userFlag)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				metrics, err := readMetrics(metricsPath)
				if err != nil {
					return err
				}
				res, err := a.ReviewUser(ctx, userID, metrics)
				if err != nil {
					return err
				}
				return out.Encode(res)
			})
		},
	}
	cmd.Flags().StringVar(&userFlag, "user", "", "user id to review")
	cmd.Flags().StringVar(&metricsPath, "metrics", "", "path to a behavior metrics JSON file")
	cmd.Flags().BoolVar(&due, "due", false, "review every architecture whose mandatory integration check is due")
	cmd.Flags().IntVar(&limit, "limit", 500, "maximum architectures per sweep")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "concurrent reviews during a sweep")
	return cmd
}

// newReviewsCmd exposes the professional-support review queue to whoever follows up on it.
func newReviewsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Inspect and resolve professional-support reviews",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List unresolved reviews, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				rows, err := a.OpenReviews(ctx, limit)
				if err != nil {
					return err
				}
				out := json.NewEncoder(cmd.OutOrStdout())
				out.SetIndent("", "  ")
				return out.Encode(rows)
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 100, "maximum reviews to list")

	resolve := &cobra.Command{
		Use:   "resolve <review-id>",
		Short: "Mark a review as handled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid review id: %w", err)
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.ResolveReview(ctx, id)
			})
		},
	}

	cmd.AddCommand(list, resolve)
	return cmd
}

func readMetrics(path string) (*types.BehaviorMetrics, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	var m types.BehaviorMetrics
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return &m, nil
}

func runServe(ctx context.Context, migrate bool) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		if migrate {
			if err := a.Migrate(); err != nil {
				return err
			}
		}
		return a.Run(ctx)
	})
}

// withApp builds the app under a signal-aware context and tears it down afterwards.
func withApp(parent context.Context, fn func(ctx context.Context, a *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(ctx, log, app.LoadConfig(log))
	if err != nil {
		log.Error("app init failed", "error", err)
		log.Sync()
		return err
	}
	defer a.Close()

	if err := fn(ctx, a); err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Error("command failed", "error", err)
		return err
	}
	return nil
}
