package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/facegate-io/facegate/internal/config"
	"github.com/facegate-io/facegate/internal/database"
	"github.com/facegate-io/facegate/internal/tools/common"
	"github.com/facegate-io/facegate/internal/tools/ui"
)

type options struct {
	envFile string
	ci      bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Database seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Insert demo identities",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed apply", func(ctx context.Context) ([]string, error) {
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				sqlDB, _ := db.DB()
				defer func() { _ = sqlDB.Close() }()

				report, err := database.SeedUsers(db)
				if err != nil {
					return nil, err
				}
				if report.Noop {
					return []string{"demo identities already present, nothing inserted"}, nil
				}
				return []string{
					fmt.Sprintf("inserted %d demo identities", report.CreatedUsers),
					"face profiles are not seeded, enroll each identity explicitly",
				}, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed apply", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "seed dry-run", func(ctx context.Context) ([]string, error) {
				if _, err := loadConfig(opts.envFile); err != nil {
					return nil, err
				}
				return []string{
					"would ensure demo identities: demo, demo-admin",
					"existing rows are left untouched",
					"no face profiles are created",
				}, nil
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "seed dry-run", details, err)
			}
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		return fn(context.Background())
	}
	return ui.Run(title, fn)
}

func loadConfig(envFile string) (*config.Config, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	return config.Load()
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
