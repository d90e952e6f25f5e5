package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/meenmo/ccrfast/ccr"
	"github.com/meenmo/ccrfast/cmd/exposure/internal/portfolio"
	"github.com/meenmo/ccrfast/config"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/simulation"
	"github.com/meenmo/ccrfast/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// ProfilePoint is one exposure date of the report. Money amounts are rounded to cents.
type ProfilePoint struct {
	Date string          `json:"date"`
	EE   decimal.Decimal `json:"ee"`
	ENE  decimal.Decimal `json:"ene"`
	PFE  decimal.Decimal `json:"pfe"`
}

// RunOutput is the JSON report of the run command.
type RunOutput struct {
	AsOf     string          `json:"as_of"`
	Paths    int             `json:"paths"`
	Quantile float64         `json:"quantile"`
	EPE      decimal.Decimal `json:"epe"`
	Profile  []ProfilePoint  `json:"profile"`
}

// TradeDates lists one trade's exposure dates.
type TradeDates struct {
	ID    string   `json:"id"`
	Trade string   `json:"trade"`
	Dates []string `json:"dates"`
}

// TradePV compares the fast and full values of one trade at as-of.
type TradePV struct {
	ID     string          `json:"id"`
	Trade  string          `json:"trade"`
	FastPV decimal.Decimal `json:"fast_pv"`
	FullPV decimal.Decimal `json:"full_pv"`
}

// session is what every command needs: configuration, a logger, the market and the built
// fast pricers.
type session struct {
	cfg       *config.Config
	log       *zap.Logger
	asOf      time.Time
	mkt       *market.Snapshot
	input     *portfolio.Input
	positions []portfolio.Position
	pricers   []ccr.FastPricer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := newRootCmd(stdin, stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var (
		configPath string
		inputPath  string
	)
	root := &cobra.Command{
		Use:           "exposure",
		Short:         "Counterparty exposure simulation with fast revaluation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file path (YAML or JSON)")
	root.PersistentFlags().StringVar(&inputPath, "input", "", "JSON portfolio path (default: stdin)")

	open := func() (*session, error) {
		return newSession(configPath, inputPath, stdin)
	}

	var quiet bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate the portfolio and print its exposure profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			defer func() { _ = s.log.Sync() }()
			out, err := s.simulate(cmd.Context(), stderr, quiet)
			if err != nil {
				return err
			}
			return writeJSON(stdout, out)
		},
	}
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "hide the progress bar")

	datesCmd := &cobra.Command{
		Use:   "dates",
		Short: "Print the exposure dates of every trade",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			external := s.grid()
			out := make([]TradeDates, len(s.pricers))
			for i, fp := range s.pricers {
				out[i] = TradeDates{ID: s.positions[i].ID, Trade: fp.Pricer().Product().Description()}
				for _, d := range fp.ExposureDates(external) {
					out[i].Dates = append(out[i].Dates, utils.FormatDate(d))
				}
			}
			return writeJSON(stdout, out)
		},
	}

	pvCmd := &cobra.Command{
		Use:   "pv",
		Short: "Print fast and full present values at the as-of date",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open()
			if err != nil {
				return err
			}
			out := make([]TradePV, len(s.pricers))
			for i, fp := range s.pricers {
				fast, err := fp.Pv(fp.NewPathState(), s.asOf, s.mkt)
				if err != nil {
					return fmt.Errorf("%s: %w", s.positions[i].ID, err)
				}
				full, err := fp.Pricer().Pv()
				if err != nil {
					return fmt.Errorf("%s: %w", s.positions[i].ID, err)
				}
				out[i] = TradePV{
					ID:     s.positions[i].ID,
					Trade:  fp.Pricer().Product().Description(),
					FastPV: money(fast),
					FullPV: money(full),
				}
			}
			return writeJSON(stdout, out)
		},
	}

	root.AddCommand(runCmd, datesCmd, pvCmd)
	return root
}

func newSession(configPath, inputPath string, stdin io.Reader) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	in, err := portfolio.Read(stdin, inputPath)
	if err != nil {
		return nil, err
	}
	asOf, err := in.Date()
	if err != nil {
		return nil, err
	}
	mkt, err := in.BuildMarket(asOf)
	if err != nil {
		return nil, err
	}
	opts := cfg.Engine.Options()
	positions, err := in.Positions(mkt, opts.Settings(1))
	if err != nil {
		return nil, err
	}
	pricers := make([]ccr.FastPricer, len(positions))
	for i, pos := range positions {
		fp, err := ccr.Build(pos.Pricer, opts, ccr.WithLogger(log.With(zap.String("trade", pos.ID))))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pos.ID, err)
		}
		pricers[i] = fp
	}
	log.Debug("portfolio loaded",
		zap.Time("as_of", asOf),
		zap.Int("trades", len(pricers)),
	)
	return &session{cfg: cfg, log: log, asOf: asOf, mkt: mkt, input: in, positions: positions, pricers: pricers}, nil
}

// grid is the external exposure grid: every step from as-of to the horizon.
func (s *session) grid() []time.Time {
	sc := s.cfg.Simulation
	return utils.MonthlyGrid(s.asOf, s.asOf.AddDate(sc.HorizonYears, 0, 0), sc.StepMonths)
}

func (s *session) simulate(ctx context.Context, stderr io.Writer, quiet bool) (*RunOutput, error) {
	simCfg := s.cfg.Simulation.Config(s.input.Assets())
	dates := simulation.ExposureGrid(s.pricers, s.grid())

	opts := []simulation.Option{simulation.WithLogger(s.log)}
	if !quiet {
		bar := progressBar(simCfg.Paths, stderr)
		opts = append(opts, simulation.WithProgress(func(int, int) { _ = bar.Add(1) }))
		defer func() { _ = bar.Finish() }()
	}

	profile, err := simulation.NewEngine(simCfg, opts...).Run(ctx, s.pricers, s.mkt, dates)
	if err != nil {
		return nil, err
	}
	out := &RunOutput{
		AsOf:     utils.FormatDate(s.asOf),
		Paths:    profile.Paths,
		Quantile: profile.Quantile,
		EPE:      money(profile.EPE),
		Profile:  make([]ProfilePoint, len(profile.Dates)),
	}
	for i, d := range profile.Dates {
		out.Profile[i] = ProfilePoint{
			Date: utils.FormatDate(d),
			EE:   money(profile.EE[i]),
			ENE:  money(profile.ENE[i]),
			PFE:  money(profile.PFE[i]),
		}
	}
	return out, nil
}

func progressBar(length int, w io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		length,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("paths"),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowDescriptionAtLineEnd(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}

func money(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(2)
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
