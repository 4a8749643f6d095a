package api

import (
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/FACorreiaa/promptveo-api/internal/domain/features"
	"github.com/FACorreiaa/promptveo-api/internal/types"
	"github.com/FACorreiaa/promptveo-api/pkg/config"
	"github.com/FACorreiaa/promptveo-api/pkg/logger"
)

type commandContext struct {
	configPath string
}

func (c *commandContext) load() (*config.Config, error) {
	if c.configPath != "" {
		if err := os.Setenv(config.EnvConfigFile, c.configPath); err != nil {
			return nil, err
		}
	}
	return config.Load()
}

// NewRootCommand builds the promptveo CLI. Without a subcommand it serves the API.
func NewRootCommand() *cobra.Command {
	cc := &commandContext{}

	serve := newServeCommand(cc)
	root := &cobra.Command{
		Use:           "promptveo",
		Short:         "PromptVeo3 API server and tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&cc.configPath, "config", "c", "", "TOML configuration file")

	root.AddCommand(serve)
	root.AddCommand(newMigrateCommand(cc))
	root.AddCommand(newPlansCommand(cc))
	return root
}

func newServeCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cc.load()
			if err != nil {
				return err
			}
			log := logger.New(os.Stdout, cfg.Observability.LogLevel, cfg.Observability.LogFormat)
			return Serve(cmd.Context(), cfg, log)
		},
	}
}

func newMigrateCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply, roll back or list database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cc.load()
			if err != nil {
				return err
			}
			log := logger.New(os.Stderr, cfg.Observability.LogLevel, cfg.Observability.LogFormat)
			database, err := OpenDatabase(cfg, log)
			if err != nil {
				return err
			}
			defer database.Close()

			ctx := cmd.Context()
			switch args[0] {
			case "up":
				return database.RunMigrations(ctx)
			case "down":
				return database.RollbackMigration(ctx)
			default:
				states, err := database.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.SetStyle(table.StyleRounded)
				tw.AppendHeader(table.Row{"Version", "Migration", "Applied"})
				for _, s := range states {
					applied := "pending"
					if s.Applied {
						applied = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
					tw.AppendRow(table.Row{s.Version, s.Path, applied})
				}
				tw.Render()
				return nil
			}
		},
	}
	return cmd
}

func newPlansCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Show the plan catalog and what each plan unlocks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			priceID := ""
			if cfg, err := cc.load(); err == nil {
				priceID = cfg.Stripe.ProPriceID
			}
			renderPlans(cmd.OutOrStdout(), features.PlanCatalog(priceID))
			return nil
		},
	}
}

func renderPlans(w io.Writer, plans []types.PlanDescription) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Plan", "Visible prompts", "View all", "JSON", "Favorites", "Remix", "Create", "Price ID"})
	for _, p := range plans {
		f := p.Features
		visible := strconv.Itoa(f.MaxVisiblePrompts)
		if f.Unlimited() {
			visible = "unlimited"
		}
		tw.AppendRow(table.Row{p.Name, visible, yesNo(f.CanViewAllPrompts), yesNo(f.CanViewJSON),
			yesNo(f.CanFavorite), yesNo(f.CanRemix), yesNo(f.CanCreate), orDash(p.PriceID)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
