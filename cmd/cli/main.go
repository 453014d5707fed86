// Command gasx fits score-driven time-series models from the terminal.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gasx/adapters/excel"
	"gasx/adapters/memory"
	"gasx/adapters/postgres"
	"gasx/app"
	"gasx/domain/family"
	"gasx/domain/run"
	"gasx/estimate"
	"gasx/forecast"
	"gasx/internal"
	"gasx/internal/config"
	"gasx/ports"
)

func main() {
	// Missing .env files are fine; the environment still applies.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gasx",
		Short: "GASX score-driven time-series estimation and forecasting",
	}

	rootCmd.AddCommand(
		newFitCmd(),
		newForecastCmd(),
		newRunsCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type modelFlags struct {
	formula string
	famName string
	ar      int
	sc      int
	method  string
	seed    uint64
}

func (f *modelFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.formula, "formula", "", "model formula, e.g. \"y ~ x1 + x2\"")
	cmd.Flags().StringVar(&f.famName, "family", "normal", "observation family: poisson|normal|exponential")
	cmd.Flags().IntVar(&f.ar, "ar", 1, "autoregressive lag order")
	cmd.Flags().IntVar(&f.sc, "sc", 1, "score lag order")
	cmd.Flags().StringVar(&f.method, "method", "MLE", "estimation method: MLE|PML|Laplace|BBVI|M-H")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "random seed for stochastic procedures")
	cmd.MarkFlagRequired("formula")
}

// buildModel loads the data file and constructs the model from flags.
func (f *modelFlags) buildModel(dataFile string, cfg *config.Config) (*app.GASX, error) {
	fam, err := family.New(f.famName)
	if err != nil {
		return nil, err
	}
	table, err := excel.NewDataReader(dataFile).ReadTable()
	if err != nil {
		return nil, err
	}
	model, err := app.NewGASX(f.formula, table, f.ar, f.sc, fam)
	if err != nil {
		return nil, err
	}
	model.Seed = f.seed
	model.Sims = cfg.Model.Sims
	return model, nil
}

func newFitCmd() *cobra.Command {
	flags := &modelFlags{}
	var iterations, nsims, miniBatch int
	var noMapStart bool

	cmd := &cobra.Command{
		Use:   "fit [data-file]",
		Short: "Fit a model and print the estimated latent variables",
		Long: `Fit a score-driven model to a CSV or xlsx observation table.

Example: gasx fit sunspots.csv --formula "counts ~ 1" --family poisson --ar 2 --sc 2 --method BBVI`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				flags.seed = cfg.Model.Seed
			}
			model, err := flags.buildModel(args[0], cfg)
			if err != nil {
				return err
			}

			opts := estimate.DefaultOptions()
			opts.Seed = flags.seed
			opts.Iterations = cfg.Model.Iterations
			if iterations > 0 {
				opts.Iterations = iterations
			}
			if nsims > 0 {
				opts.NSims = nsims
			}
			if miniBatch > 0 {
				opts.MiniBatch = miniBatch
			}
			opts.MapStart = !noMapStart

			svc, closer, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer closer()

			manifest, err := svc.RunFit(cmd.Context(), model, flags.method, &opts)
			if err != nil {
				return err
			}

			printManifest(manifest)
			fmt.Println("\nLatent variables:")
			names := model.LatentVariables().Names()
			values := model.LatentVariables().Values()
			for i, name := range names {
				fmt.Printf("  %-24s %12.6f\n", name, values[i])
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&iterations, "iterations", 0, "BBVI iterations (0 uses the default)")
	cmd.Flags().IntVar(&nsims, "nsims", 0, "M-H chain length (0 uses the default)")
	cmd.Flags().IntVar(&miniBatch, "mini-batch", 0, "BBVI mini-batch size (0 disables)")
	cmd.Flags().BoolVar(&noMapStart, "no-map-start", false, "start BBVI from priors instead of the PML optimum")
	return cmd
}

func newForecastCmd() *cobra.Command {
	flags := &modelFlags{}
	var horizon int
	var oosFile, exportFile string
	var intervals bool

	cmd := &cobra.Command{
		Use:   "forecast [data-file]",
		Short: "Fit a model and forecast past the sample",
		Long: `Fit and then forecast h steps ahead. With regressors in the formula,
--oos must name a table carrying their future values.

Example: gasx forecast demand.xlsx --formula "y ~ price" --h 5 --oos future.csv --intervals --export forecast.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				flags.seed = cfg.Model.Seed
			}
			if exportFile == "" {
				exportFile = cfg.Export.ExcelFile
			}
			model, err := flags.buildModel(args[0], cfg)
			if err != nil {
				return err
			}

			opts := estimate.DefaultOptions()
			opts.Seed = flags.seed
			opts.Iterations = cfg.Model.Iterations

			svc, closer, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer closer()

			manifest, err := svc.RunFit(cmd.Context(), model, flags.method, &opts)
			if err != nil {
				return err
			}

			var table *forecast.Table
			if oosFile != "" {
				oos, err := excel.NewDataReader(oosFile).ReadTable()
				if err != nil {
					return err
				}
				table, err = model.Predict(horizon, oos, intervals)
				if err != nil {
					return err
				}
			} else {
				table, err = model.PredictIS(horizon, intervals)
				if err != nil {
					return err
				}
			}

			printManifest(manifest)
			printForecast(table)

			if exportFile != "" {
				if err := excel.WriteForecast(exportFile, table, manifest); err != nil {
					return err
				}
				fmt.Printf("\nForecast written to %s\n", exportFile)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&horizon, "h", 5, "forecast horizon in steps")
	cmd.Flags().StringVar(&oosFile, "oos", "", "table of future regressor values (omit for in-sample)")
	cmd.Flags().BoolVar(&intervals, "intervals", false, "add simulated prediction interval bands")
	cmd.Flags().StringVar(&exportFile, "export", "", "write the forecast to an xlsx workbook")
	return cmd
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded estimation runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("runs requires DATABASE_URL to be configured")
			}
			svc, closer, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer closer()

			manifests, err := svc.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, m := range manifests {
				fmt.Printf("%s  %-8s %-12s ll=%10.4f  %s\n",
					m.CreatedAt.Time().Format("2006-01-02 15:04:05"), m.Method, m.Family, m.LogLikelihood, m.RunID)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")
	return cmd
}

// buildService wires the fit service against the configured ledger,
// returning a closer for the database connection when one was opened.
func buildService(cfg *config.Config) (*app.FitService, func(), error) {
	log := internal.NewDefaultLogger()
	if cfg.Database.URL == "" {
		return app.NewFitService(memory.NewLedger(), log), func() {}, nil
	}
	repo, err := postgres.NewRunRepository(cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	var ledger ports.LedgerPort = repo
	return app.NewFitService(ledger, log), func() { repo.Close() }, nil
}

func printManifest(m *run.Manifest) {
	fmt.Printf("Run %s (%s): log-likelihood %.4f in %dms\n", m.RunID, m.Method, m.LogLikelihood, m.RuntimeMS)
	for _, w := range m.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func printForecast(t *forecast.Table) {
	fmt.Println("\nStep  " + strings.Join(t.Columns, "  "))
	for i, row := range t.Values {
		fmt.Printf("%4d", i+1)
		for _, v := range row {
			fmt.Printf("  %12.4f", v)
		}
		fmt.Println()
	}
}
