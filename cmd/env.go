package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/airshed-group/exposure-cli/internal/boundary"
	"github.com/airshed-group/exposure-cli/internal/census"
	"github.com/airshed-group/exposure-cli/internal/engine"
	"github.com/airshed-group/exposure-cli/internal/exposure"
	"github.com/airshed-group/exposure-cli/internal/maprender"
	"github.com/airshed-group/exposure-cli/internal/tileset"
)

// popSource is the store-backed census source plus its lifecycle.
type popSource interface {
	census.Source
	Migrate(ctx context.Context) error
	Load(ctx context.Context, records []census.Record) (int64, error)
}

// initSource opens the configured population store.
func initSource(ctx context.Context) (popSource, func(), error) {
	switch cfg.Store.Driver {
	case "sqlite":
		src, err := census.NewSQLiteSource(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil
	case "postgres":
		src, err := census.NewPostgresSource(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return src, src.Close, nil
	default:
		return nil, nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// analysisEnv holds the wired pipeline for the analyze/serve commands.
type analysisEnv struct {
	Index      *maprender.Index
	Windows    *tileset.Table
	Controller *engine.Controller

	closeSource func()
}

// Close releases the controller and the population store.
func (e *analysisEnv) Close() {
	if e.Controller != nil {
		e.Controller.Close()
	}
	if e.closeSource != nil {
		e.closeSource()
	}
}

// initEngine loads map data, opens the population store, and wires the
// analysis controller. Callers should defer env.Close().
func initEngine(ctx context.Context, mode string) (*analysisEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	src, closeSource, err := initSource(ctx)
	if err != nil {
		return nil, err
	}

	idx := maprender.NewIndex(maprender.WithViewport(maprender.Viewport{
		CenterLng: cfg.Map.CenterLng,
		CenterLat: cfg.Map.CenterLat,
		Zoom:      cfg.Map.Zoom,
		Width:     cfg.Map.Width,
		Height:    cfg.Map.Height,
	}))

	tracts, err := maprender.LoadTractShapefile(cfg.Map.TractShapefile)
	if err != nil {
		closeSource()
		return nil, err
	}
	idx.AddFeatures(boundary.DefaultTractLayer, tracts)

	samples, err := maprender.LoadSampleCSV(cfg.Map.SampleFile)
	if err != nil {
		closeSource()
		return nil, err
	}
	for layer, feats := range samples {
		idx.AddFeatures(layer, feats)
	}
	idx.MarkReady()

	windows, err := tileset.LoadTable(cfg.Map.WindowsFile)
	if err != nil {
		closeSource()
		return nil, err
	}

	ctrl := engine.NewController(
		boundary.NewResolver(idx),
		exposure.NewCalculator(idx, exposure.DefaultBins()),
		census.NewCache(src, census.WithTTL(time.Duration(cfg.Census.CacheTTLHours)*time.Hour)),
		windows,
		engine.WithDebounce(time.Duration(cfg.Engine.DebounceMillis)*time.Millisecond),
	)

	zap.L().Info("analysis engine ready",
		zap.Int("tracts", idx.FeatureCount(boundary.DefaultTractLayer)),
		zap.Int("windows", len(windows.Windows())))

	return &analysisEnv{
		Index:       idx,
		Windows:     windows,
		Controller:  ctrl,
		closeSource: closeSource,
	}, nil
}
