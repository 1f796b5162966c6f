package session

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/muurk/ptzlink/internal/camhttp"
	"github.com/muurk/ptzlink/internal/config"
	"github.com/muurk/ptzlink/internal/firmware"
	"github.com/muurk/ptzlink/internal/logging"
	"github.com/muurk/ptzlink/internal/metrics"
	"github.com/muurk/ptzlink/internal/telemetry"
	"github.com/muurk/ptzlink/internal/variables"
	"github.com/muurk/ptzlink/internal/visca"
)

// Close reasons reported to the transport
const (
	ReasonNoHost   = "no host specified"
	ReasonShutdown = "shutting down"
)

// Transport is the command channel. Open must not block on connection
// establishment.
type Transport interface {
	Open(host string, port int)
	Close(reason string, status visca.Status)
	SendCommand(ctx context.Context, cmd visca.Command) error
	SendInquiry(ctx context.Context, q visca.Inquiry) (visca.Answer, error)
}

// FirmwareChecker looks up the firmware advisory for a camera model
type FirmwareChecker interface {
	Check(ctx context.Context, model, deviceVersion string) (*firmware.Advisory, error)
}

// Outcome is what a reconciliation did
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeInPlace
	OutcomeNoHost
	OutcomeRestarted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeInPlace:
		return "in_place"
	case OutcomeNoHost:
		return "no_host"
	case OutcomeRestarted:
		return "restarted"
	default:
		return "unknown"
	}
}

// Config holds the Controller's collaborators. Every field is optional.
type Config struct {
	Metrics *metrics.Metrics

	// Firmware defaults to firmware.NewChecker()
	Firmware FirmwareChecker

	// NewHTTPClient builds the camera HTTP client for a set of options
	// (default: camhttp.NewClient against the option's host)
	NewHTTPClient func(opts config.Options) *camhttp.Client

	// Endpoints polled by telemetry (default: telemetry.DefaultEndpoints)
	Endpoints []telemetry.Endpoint
}

// Snapshot describes the session left by the last reconciliation
type Snapshot struct {
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	HasCredentials bool   `json:"has_credentials"`
	Polling        bool   `json:"polling"`
	PollIntervalMS int64  `json:"poll_interval_ms"`
	LastOutcome    string `json:"last_outcome,omitempty"`
}

// state is everything tied to one applied set of options
type state struct {
	applied bool
	opts    config.Options
	client  *camhttp.Client
	poller  *telemetry.Poller
}

// Controller owns the camera session: the command transport lifecycle, the
// HTTP client and the telemetry poller.
type Controller struct {
	transport Transport
	pub       variables.Publisher
	cfg       Config

	// ctx outlives individual reconciliations; Shutdown cancels it
	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes reconciliations and guards st
	mu       sync.Mutex
	st       state
	shutdown bool

	// snap is stored after every reconciliation and read without mu
	snap atomic.Pointer[Snapshot]

	// Apply mailbox: only the latest pending configuration is kept
	pendingMu  sync.Mutex
	pending    map[string]any
	hasPending bool
	wake       chan struct{}
	workerOnce sync.Once
	workerDone chan struct{}
}

// New creates a Controller. Nothing happens until the first Reconcile or Apply.
func New(transport Transport, pub variables.Publisher, cfg Config) *Controller {
	if cfg.Firmware == nil {
		cfg.Firmware = firmware.NewChecker()
	}
	if cfg.NewHTTPClient == nil {
		cfg.NewHTTPClient = func(o config.Options) *camhttp.Client {
			return camhttp.NewClient(o.Host, o.HTTPUsername, o.HTTPPassword)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		transport:  transport,
		pub:        pub,
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
		workerDone: make(chan struct{}),
	}
}

// Snapshot returns the session as of the last finished reconciliation. It
// does not wait for one in progress.
func (c *Controller) Snapshot() Snapshot {
	if snap := c.snap.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}

// Apply schedules a reconciliation and returns immediately. Configurations
// applied faster than they can be reconciled collapse to the latest one.
func (c *Controller) Apply(raw map[string]any) {
	c.workerOnce.Do(func() { go c.worker() })

	c.pendingMu.Lock()
	c.pending = raw
	c.hasPending = true
	c.pendingMu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) worker() {
	defer close(c.workerDone)
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.wake:
		}

		c.pendingMu.Lock()
		raw, ok := c.pending, c.hasPending
		c.pending, c.hasPending = nil, false
		c.pendingMu.Unlock()

		if ok {
			c.Reconcile(c.ctx, raw)
		}
	}
}

// Reconcile brings the session in line with raw and reports what it did.
// Errors along the way are logged, never returned.
func (c *Controller) Reconcile(ctx context.Context, raw map[string]any) Outcome {
	opts, issues := config.ParseOptions(raw)
	for _, issue := range issues {
		logging.Warn("Invalid configuration value",
			zap.String("field", issue.Field),
			zap.Any("value", issue.Value),
			zap.String("reason", issue.Message),
		)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		logging.Debug("Ignoring configuration after shutdown")
		return OutcomeUnchanged
	}

	outcome := c.reconcileLocked(ctx, opts)
	c.snap.Store(&Snapshot{
		Host:           c.st.opts.Host,
		Port:           c.st.opts.Port,
		HasCredentials: c.st.client != nil && c.st.opts.HasCredentials(),
		Polling:        c.st.poller != nil,
		PollIntervalMS: c.st.opts.HTTPPollInterval.Milliseconds(),
		LastOutcome:    outcome.String(),
	})
	c.cfg.Metrics.Reconciled(outcome.String())
	logging.Info("Configuration reconciled",
		zap.String("outcome", outcome.String()),
		zap.String("target", opts.Target().String()),
		zap.Bool("polling", opts.PollingEnabled()),
	)
	return outcome
}

func (c *Controller) reconcileLocked(ctx context.Context, opts config.Options) Outcome {
	prev := c.st

	if !prev.applied || prev.opts.DebugLogging != opts.DebugLogging {
		logging.SetDebug(opts.DebugLogging)
	}

	if prev.applied && prev.opts.RestartFree(opts) {
		c.st.opts = opts
		if prev.opts.DebugLogging != opts.DebugLogging {
			return OutcomeInPlace
		}
		return OutcomeUnchanged
	}

	if !opts.HasHost() {
		c.transport.Close(ReasonNoHost, visca.StatusBadConfig)
		c.discardLocked()
		c.st = state{applied: true, opts: opts}
		return OutcomeNoHost
	}

	c.transport.Open(opts.Host, opts.Port)
	c.discardLocked()

	client := c.cfg.NewHTTPClient(opts)
	c.st = state{applied: true, opts: opts, client: client}

	var id Identity
	if opts.HasCredentials() {
		id, _ = FetchIdentity(ctx, client)
		id.add(FirmwareUpdateDefinition, FirmwareAdvisory(ctx, c.cfg.Firmware, id))
	}

	if opts.PollingEnabled() {
		p := telemetry.New(client, c.pub, telemetry.Config{
			Interval:   opts.HTTPPollInterval,
			Endpoints:  c.cfg.Endpoints,
			Seed:       id.Definitions,
			SeedValues: id.Values,
			Metrics:    c.cfg.Metrics,
		})
		p.Start(c.ctx)
		c.st.poller = p
	} else {
		c.pub.SetDefinitions(id.Definitions)
		c.pub.SetValues(id.Values)
	}
	return OutcomeRestarted
}

// discardLocked stops the poller and drops the session state
func (c *Controller) discardLocked() {
	if c.st.poller != nil {
		c.st.poller.Stop()
	}
	c.st = state{applied: c.st.applied, opts: c.st.opts}
}

// Shutdown stops polling and closes the command channel. The Controller
// ignores every later reconciliation.
func (c *Controller) Shutdown() {
	c.cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shutdown {
		return
	}
	c.shutdown = true
	c.discardLocked()
	c.transport.Close(ReasonShutdown, visca.StatusDisconnected)
}
