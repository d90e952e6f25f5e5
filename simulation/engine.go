package simulation

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/ccrfast/ccr"
	"github.com/meenmo/ccrfast/market"
	"github.com/meenmo/ccrfast/utils"
)

// ErrNoPaths is returned by Run when asked for zero paths.
var ErrNoPaths = errors.New("simulation: no paths requested")

// Config controls an exposure run.
type Config struct {
	Paths    int
	Workers  int
	Seed     uint64
	Quantile float64
	Model    Model
}

// DefaultConfig returns a small run suitable for a laptop.
func DefaultConfig() Config {
	return Config{
		Paths:    1000,
		Workers:  runtime.NumCPU(),
		Seed:     42,
		Quantile: 0.95,
		Model: Model{
			RateVol:       0.01,
			MeanReversion: 0.03,
			SpotVol:       0.2,
			Currency:      "EUR",
		},
	}
}

// Engine values a netting set of fast pricers along simulated paths.
type Engine struct {
	cfg      Config
	gen      *Generator
	log      *zap.Logger
	progress func(done, total int)
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithProgress registers a callback invoked after every completed path. It may be called
// from several goroutines.
func WithProgress(f func(done, total int)) Option {
	return func(e *Engine) { e.progress = f }
}

// NewEngine returns an engine for cfg.
func NewEngine(cfg Config, opts ...Option) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Quantile <= 0 || cfg.Quantile >= 1 {
		cfg.Quantile = 0.95
	}
	e := &Engine{cfg: cfg, gen: NewGenerator(cfg.Model, cfg.Seed), log: zap.NewNop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// ExposureGrid merges the exposure dates of every pricer with external, so each pricer sees
// its own critical dates along the path.
func ExposureGrid(pricers []ccr.FastPricer, external []time.Time) []time.Time {
	var all []time.Time
	all = append(all, external...)
	for _, p := range pricers {
		all = append(all, p.ExposureDates(external)...)
	}
	utils.SortDates(all)
	return utils.UniqueDates(all)
}

// Run simulates cfg.Paths paths on dates and returns the netted exposure profile. Values are
// the sum over pricers; every path owns its own PathStates.
func (e *Engine) Run(ctx context.Context, pricers []ccr.FastPricer, base market.Market, dates []time.Time) (*Profile, error) {
	n := e.cfg.Paths
	if n <= 0 {
		return nil, ErrNoPaths
	}
	started := time.Now()
	values := make([][]float64, n)
	var done atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			row, err := e.path(i, pricers, base, dates)
			if err != nil {
				return fmt.Errorf("path %d: %w", i, err)
			}
			values[i] = row
			if e.progress != nil {
				e.progress(int(done.Add(1)), n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.log.Error("simulation aborted", zap.Error(err))
		return nil, err
	}

	profile := NewProfile(dates, values, e.cfg.Quantile)
	e.log.Info("simulation complete",
		zap.Int("paths", n),
		zap.Int("dates", len(dates)),
		zap.Int("pricers", len(pricers)),
		zap.Float64("epe", profile.EPE),
		zap.Duration("elapsed", time.Since(started)),
	)
	return profile, nil
}

func (e *Engine) path(i int, pricers []ccr.FastPricer, base market.Market, dates []time.Time) ([]float64, error) {
	scenarios := e.gen.Path(i, base, dates)
	states := make([]*ccr.PathState, len(pricers))
	for k, p := range pricers {
		states[k] = p.NewPathState()
	}
	row := make([]float64, len(dates))
	for j, d := range dates {
		for k, p := range pricers {
			v, err := p.Pv(states[k], d, scenarios[j])
			if err != nil {
				return nil, err
			}
			row[j] += v
		}
	}
	return row, nil
}
