// Package telemetry polls the camera's CGI status endpoints and publishes
// what it finds as variables.
//
// The first cycle in which any endpoint answers defines the variable set;
// later cycles only refresh values. At most one cycle runs at a time: a
// timer tick that finds a cycle still in flight is dropped.
package telemetry

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/camhttp"
	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/metrics"
	"github.com/muurk/ptzlink/internal/variables"
)

// Fetcher performs one GET against the camera
type Fetcher interface {
	Get(ctx context.Context, path string) (*camhttp.Result, error)
}

// Endpoint is one status URL polled every cycle
type Endpoint struct {
	// Name labels logs and metrics
	Name string
	// Path is the CGI path
	Path string
	// IDPrefix and NamePrefix keep keys from different endpoints apart
	IDPrefix   string
	NamePrefix string
}

// DefaultEndpoints are polled in order: tally status, then image settings
var DefaultEndpoints = []Endpoint{
	{Name: "tally", Path: camhttp.PathTallyStatus},
	{Name: "image", Path: camhttp.PathAdvanceImageConf, IDPrefix: "img", NamePrefix: "Image"},
}

// Config configures a Poller
type Config struct {
	// Interval between timer ticks; must be > 0
	Interval time.Duration

	// Endpoints to poll (default: DefaultEndpoints)
	Endpoints []Endpoint

	// Seed definitions and values (device identity) are published together
	// with the first discovered set
	Seed       []variables.Definition
	SeedValues map[string]string

	Metrics *metrics.Metrics
}

type observation struct {
	def   variables.Definition
	value string
}

// Poller owns the state of one polling session. A stopped Poller cannot be
// restarted; the session controller creates a new one.
type Poller struct {
	fetcher Fetcher
	pub     variables.Publisher
	cfg     Config

	inFlight atomic.Bool

	mu       sync.Mutex
	started  bool
	stopped  bool
	firstRun bool
	defs     []variables.Definition
	known    map[string]bool
	values   map[string]string
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Poller. Nothing is fetched until Start.
func New(fetcher Fetcher, pub variables.Publisher, cfg Config) *Poller {
	if cfg.Endpoints == nil {
		cfg.Endpoints = DefaultEndpoints
	}

	p := &Poller{
		fetcher:  fetcher,
		pub:      pub,
		cfg:      cfg,
		firstRun: true,
		known:    make(map[string]bool),
		values:   make(map[string]string),
		done:     make(chan struct{}),
	}
	for _, def := range cfg.Seed {
		if p.known[def.ID] {
			continue
		}
		p.known[def.ID] = true
		p.defs = append(p.defs, def)
	}
	for id, v := range cfg.SeedValues {
		p.values[id] = v
	}
	return p
}

// Start runs one cycle immediately and then one per interval until Stop.
// Fetches use ctx, so a cycle in flight when Stop is called is allowed to
// finish; its results are discarded.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	logging.Info("Telemetry polling started",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("endpoints", len(p.cfg.Endpoints)),
	)

	go p.loop(loopCtx, ctx)
}

func (p *Poller) loop(loopCtx, fetchCtx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	go p.tick(fetchCtx)
	for {
		select {
		case <-loopCtx.Done():
			return
		case <-ticker.C:
			go p.tick(fetchCtx)
		}
	}
}

// Stop cancels the timer. It does not wait for a cycle in flight, but once
// Stop returns nothing more is published.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return
	}
	p.stopped = true
	if p.cancel != nil {
		p.cancel()
	}
	logging.Debug("Telemetry polling stopped")
}

// Done is closed when the timer loop has exited
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

// Snapshot returns copies of the current definitions and values
func (p *Poller) Snapshot() ([]variables.Definition, map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	values := make(map[string]string, len(p.values))
	for k, v := range p.values {
		values[k] = v
	}
	return append([]variables.Definition(nil), p.defs...), values
}

// tick runs one cycle unless another is still in flight. It reports
// whether a cycle ran.
func (p *Poller) tick(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.cfg.Metrics.TickSkipped()
		logging.Debug("Skipping poll tick, previous cycle still in flight")
		return false
	}
	defer p.inFlight.Store(false)

	p.cfg.Metrics.CycleStarted()

	observed, err := fetchAll(ctx, p.fetcher, p.cfg.Endpoints, p.cfg.Metrics)
	if err == nil {
		p.cfg.Metrics.CycleSucceeded(time.Now())
		p.publish(observed)
	}
	return true
}

// Collect runs one cycle outside any Poller, for one-shot readings. It
// fails only when no endpoint answered.
func Collect(ctx context.Context, fetcher Fetcher, endpoints []Endpoint) ([]variables.Definition, map[string]string, error) {
	if endpoints == nil {
		endpoints = DefaultEndpoints
	}
	observed, err := fetchAll(ctx, fetcher, endpoints, nil)
	if err != nil {
		return nil, nil, err
	}

	var defs []variables.Definition
	values := make(map[string]string, len(observed))
	for _, o := range observed {
		if _, dup := values[o.def.ID]; dup {
			continue
		}
		defs = append(defs, o.def)
		values[o.def.ID] = o.value
	}
	return defs, values, nil
}

// fetchAll queries every endpoint in order. A failing endpoint is logged
// and skipped; the error is returned only when all of them failed.
func fetchAll(ctx context.Context, fetcher Fetcher, endpoints []Endpoint, m *metrics.Metrics) ([]observation, error) {
	var (
		observed  []observation
		lastErr   error
		succeeded bool
	)
	for _, ep := range endpoints {
		res, err := fetcher.Get(ctx, ep.Path)
		if err != nil {
			m.EndpointFailed(ep.Name)
			logging.Warn("Telemetry fetch failed",
				zap.String("endpoint", ep.Name),
				zap.String("path", ep.Path),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		succeeded = true
		observed = append(observed, observe(ep, res)...)
	}
	if !succeeded {
		if lastErr == nil {
			lastErr = errors.New("no endpoints configured")
		}
		return nil, lastErr
	}
	return observed, nil
}

// observe flattens one endpoint result into sorted observations
func observe(ep Endpoint, res *camhttp.Result) []observation {
	keys := make([]string, 0, len(res.Data))
	for k := range res.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]observation, 0, len(keys))
	for _, k := range keys {
		out = append(out, observation{
			def: variables.Definition{
				ID:   variables.ID(ep.IDPrefix, k),
				Name: variables.DisplayName(ep.NamePrefix, k),
			},
			value: camhttp.FormatValue(res.Data[k]),
		})
	}
	return out
}

func (p *Poller) publish(observed []observation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		logging.Debug("Discarding poll results after stop", zap.Int("values", len(observed)))
		return
	}

	updates := make(map[string]string, len(observed))
	if p.firstRun {
		p.firstRun = false
		for _, o := range observed {
			if p.known[o.def.ID] {
				continue
			}
			p.known[o.def.ID] = true
			p.defs = append(p.defs, o.def)
		}
		p.pub.SetDefinitions(append([]variables.Definition(nil), p.defs...))
		for id, v := range p.values {
			updates[id] = v
		}
		logging.Info("Telemetry variables discovered", zap.Int("count", len(p.defs)))
	}

	for _, o := range observed {
		if !p.known[o.def.ID] {
			continue
		}
		p.values[o.def.ID] = o.value
		updates[o.def.ID] = o.value
	}
	p.pub.SetValues(updates)
}
