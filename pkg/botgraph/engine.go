package botgraph

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/randalmurphal/botgraph/pkg/botgraph/observability"
	"github.com/randalmurphal/botgraph/pkg/botgraph/transport"
)

// Engine owns the node forest and runs the poll, dispatch, resolve loop.
//
// Wire the tree with Register before calling Run. While Run is active the
// forest is touched only by the loop's goroutine.
type Engine struct {
	client   transport.Client
	registry *Registry
	broker   *Broker
	workers  *Workers
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	cfg      engineConfig

	running atomic.Bool
	stats   engineStats
}

// NewEngine creates an engine that talks through client.
func NewEngine(client transport.Client, opts ...Option) *Engine {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Engine{
		client:   client,
		registry: NewRegistry(cfg.store, cfg.logger),
		broker:   newBroker(cfg.logger),
		workers:  newWorkers(cfg.workerLimit, cfg.logger),
		logger:   cfg.logger,
		metrics:  cfg.metricsRecorder(),
		spans:    cfg.spanManager(),
		cfg:      cfg,
	}
}

// Register adds a node to the forest. See Registry.Register.
// Registration is refused while Run is active.
func (e *Engine) Register(name, parent string, n Node) (string, error) {
	if e.running.Load() {
		return "", &ConfigError{Node: name, Op: "validate", Err: ErrEngineRunning}
	}
	name, err := e.registry.Register(name, parent, n)
	if err == nil {
		e.stats.nodes.Store(int64(e.registry.Len()))
	}
	return name, err
}

// MustRegister is Register for static wiring; it panics on error.
func (e *Engine) MustRegister(name, parent string, n Node) string {
	name, err := e.Register(name, parent, n)
	if err != nil {
		panic(err)
	}
	return name
}

// Registry returns the node registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Broker returns the deferred query broker.
func (e *Engine) Broker() *Broker {
	return e.broker
}

// Messenger returns an outbound handle acting as name, for wiring code
// that needs to send outside a dispatch pass.
func (e *Engine) Messenger(name string) *Messenger {
	return e.messengerFor(name, "")
}

func (e *Engine) messengerFor(name, passID string) *Messenger {
	return newMessenger(e.client, name, observability.EnrichLogger(e.logger, name, passID), e.metrics)
}

func (e *Engine) botFor(name string, p *pass) *Bot {
	passID := ""
	if p != nil {
		passID = p.id
	}
	return &Bot{
		Messenger: e.messengerFor(name, passID),
		engine:    e,
		pass:      p,
	}
}

type engineStats struct {
	nodes        atomic.Int64
	batches      atomic.Int64
	events       atomic.Int64
	nodeFailures atomic.Int64
	pollErrors   atomic.Int64
	lastPoll     atomic.Int64
}

// Stats is a point-in-time snapshot of engine counters.
type Stats struct {
	Running      bool      `json:"running"`
	Nodes        int64     `json:"nodes"`
	Batches      int64     `json:"batches"`
	Events       int64     `json:"events"`
	NodeFailures int64     `json:"node_failures"`
	PollErrors   int64     `json:"poll_errors"`
	Workers      int64     `json:"workers"`
	LastPoll     time.Time `json:"last_poll,omitzero"`
}

// Stats returns current counters. Safe to call from any goroutine.
func (e *Engine) Stats() Stats {
	s := Stats{
		Running:      e.running.Load(),
		Nodes:        e.stats.nodes.Load(),
		Batches:      e.stats.batches.Load(),
		Events:       e.stats.events.Load(),
		NodeFailures: e.stats.nodeFailures.Load(),
		PollErrors:   e.stats.pollErrors.Load(),
		Workers:      e.workers.Running(),
	}
	if ns := e.stats.lastPoll.Load(); ns != 0 {
		s.LastPoll = time.Unix(0, ns)
	}
	return s
}
