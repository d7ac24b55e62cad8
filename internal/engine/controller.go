package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/airshed-group/exposure-cli/internal/boundary"
	"github.com/airshed-group/exposure-cli/internal/census"
	"github.com/airshed-group/exposure-cli/internal/exposure"
	"github.com/airshed-group/exposure-cli/internal/geom2d"
	"github.com/airshed-group/exposure-cli/internal/tileset"
)

// DefaultDebounce is the trailing-edge debounce window for Trigger bursts.
const DefaultDebounce = 750 * time.Millisecond

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects a time source so tests can drive the debounce timer.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

// WithDebounce overrides the debounce window.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = d
	}
}

// Controller drives the analysis pipeline under changing inputs. Triggers
// are debounced; every trigger bumps a generation counter, and an in-flight
// run publishes an update only while its captured generation is still
// current, so a superseded run can finish but never overwrites newer state.
type Controller struct {
	resolver *boundary.Resolver
	calc     *exposure.Calculator
	pop      *census.Cache
	windows  *tileset.Table
	clock    clockwork.Clock
	debounce time.Duration

	updates chan Update

	mu      sync.Mutex
	closed  bool
	gen     uint64
	timer   clockwork.Timer
	pending *Request
	memoOK  bool
	memoKey requestKey
	memoUpd Update
}

// NewController wires the pipeline stages together.
func NewController(resolver *boundary.Resolver, calc *exposure.Calculator, pop *census.Cache, windows *tileset.Table, opts ...Option) *Controller {
	c := &Controller{
		resolver: resolver,
		calc:     calc,
		pop:      pop,
		windows:  windows,
		clock:    clockwork.NewRealClock(),
		debounce: DefaultDebounce,
		updates:  make(chan Update, 32),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Updates is the stream of results produced by debounced triggers.
func (c *Controller) Updates() <-chan Update {
	return c.updates
}

// Analyze runs one request directly, without debouncing, and streams at most
// two updates on the returned channel before closing it. The result feeds
// the same memo consulted by Trigger.
func (c *Controller) Analyze(ctx context.Context, req Request) <-chan Update {
	ch := make(chan Update, 2)
	go func() {
		defer close(ch)
		c.run(ctx, req, func(u Update) {
			ch <- u
		})
	}()
	return ch
}

// Trigger schedules a recompute with the latest inputs. Bursts of triggers
// within the debounce window collapse to a single trailing-edge execution.
func (c *Controller) Trigger(req Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.gen++
	gen := c.gen
	c.pending = &req

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.debounce, func() {
		c.fire(gen)
	})
}

// Reset clears the memo, the census cache, and any pending debounce, and
// invalidates in-flight runs.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.gen++
	c.pending = nil
	c.memoOK = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	c.pop.Reset()
}

// Close invalidates in-flight runs and closes the updates stream.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	close(c.updates)
}

// fire executes the pending request if its generation is still current.
func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen || c.pending == nil {
		c.mu.Unlock()
		return
	}
	req := *c.pending
	c.mu.Unlock()

	c.run(context.Background(), req, func(u Update) {
		c.publish(gen, u)
	})
}

// publish delivers an update unless the run has been superseded. A consumer
// that falls behind loses the oldest-style guarantee: the update is dropped
// rather than blocking the pipeline.
func (c *Controller) publish(gen uint64, u Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.gen {
		zap.L().Debug("engine: discarding stale update",
			zap.String("request_id", u.RequestID),
			zap.String("status", string(u.Status)))
		return
	}
	select {
	case c.updates <- u:
	default:
		zap.L().Warn("engine: updates channel full, dropping update",
			zap.String("request_id", u.RequestID))
	}
}

// run executes the staged pipeline for one request, emitting the partial
// tract-count update before the completed population/exposure update.
func (c *Controller) run(ctx context.Context, req Request, emit func(Update)) {
	id := uuid.NewString()
	log := zap.L().With(
		zap.String("component", "engine"),
		zap.String("request_id", id),
	)

	if u, ok := c.memoized(req.key()); ok {
		log.Debug("engine: identical request, serving memoized result")
		emit(u)
		return
	}

	if req.Polygon == nil {
		emit(c.errorUpdate(id, log, geom2d.ErrInvalidPolygon))
		return
	}
	if err := req.Polygon.Validate(); err != nil {
		emit(c.errorUpdate(id, log, err))
		return
	}

	units, err := c.resolver.ResolveIntersecting(req.Polygon)
	if err != nil {
		emit(c.errorUpdate(id, log, err))
		return
	}
	if len(units) == 0 {
		u := Update{RequestID: id, Status: StatusNoTracts, TotalPopulation: ptr(0)}
		c.memoize(req.key(), u)
		emit(u)
		return
	}

	// First stage: the tract count is known immediately.
	emit(Update{RequestID: id, Status: StatusCalculating, TractCount: len(units)})

	geoids := make([]string, len(units))
	for i, u := range units {
		geoids[i] = u.GEOID
	}

	window, haveWindow := c.windows.Resolve(req.Instant)
	if !haveWindow {
		log.Debug("engine: no tileset window for instant",
			zap.String("instant", req.Instant.String()))
	}

	// Population aggregation and exposure sampling only need the resolved
	// boundary set, so they run concurrently.
	var (
		total   int64
		mean    float64
		samples int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := c.pop.Total(gctx, geoids)
		if err != nil {
			return err
		}
		total = t
		return nil
	})
	if haveWindow {
		g.Go(func() error {
			m, n, err := c.calc.SampleStats(req.Polygon, window, req.Instant)
			if err != nil {
				return err
			}
			mean, samples = m, n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		emit(c.errorUpdate(id, log, err))
		return
	}

	res := c.calc.BuildResult(mean, samples, total, len(units))
	u := Update{
		RequestID:            id,
		Status:               StatusComplete,
		TractCount:           len(units),
		TotalPopulation:      ptr(total),
		ExposureAvailable:    haveWindow,
		AverageConcentration: res.AverageConcentration,
		SampleCount:          res.SampleCount,
		Distribution:         res.Distribution,
	}
	c.memoize(req.key(), u)

	log.Info("engine: analysis complete",
		zap.Int("tracts", len(units)),
		zap.Int64("population", total),
		zap.Int("samples", samples),
		zap.Bool("exposure_available", haveWindow))
	emit(u)
}

// errorUpdate converts a stage failure into a terminal error update. Errors
// never propagate past this boundary; the next request starts clean.
func (c *Controller) errorUpdate(id string, log *zap.Logger, err error) Update {
	kind := classify(err)
	log.Warn("engine: request failed",
		zap.String("kind", string(kind)),
		zap.Error(err))
	return Update{
		RequestID: id,
		Status:    StatusError,
		ErrorKind: kind,
		Err:       err,
	}
}

func (c *Controller) memoized(key requestKey) (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.memoOK && c.memoKey == key {
		return c.memoUpd, true
	}
	return Update{}, false
}

// memoize records the terminal update for a request key. Error updates are
// never memoized, so a retry with identical inputs recomputes.
func (c *Controller) memoize(key requestKey, u Update) {
	c.mu.Lock()
	c.memoOK = true
	c.memoKey = key
	c.memoUpd = u
	c.mu.Unlock()
}
