// Package container wires core skydesk services using go.uber.org/dig.
package container

import (
	"context"
	"path/filepath"

	"go.uber.org/dig"

	"github.com/erwiqair/skydesk/internal/agent"
	"github.com/erwiqair/skydesk/internal/airline"
	"github.com/erwiqair/skydesk/internal/analytics"
	"github.com/erwiqair/skydesk/internal/bus"
	"github.com/erwiqair/skydesk/internal/channels"
	"github.com/erwiqair/skydesk/internal/config"
	"github.com/erwiqair/skydesk/internal/gateway"
	"github.com/erwiqair/skydesk/internal/knowledge"
	"github.com/erwiqair/skydesk/internal/notify"
	"github.com/erwiqair/skydesk/internal/providers"
	"github.com/erwiqair/skydesk/internal/session"
	"github.com/erwiqair/skydesk/internal/tools"
	"github.com/erwiqair/skydesk/internal/watchdog"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg      *config.Config
	b        bus.Bus
	set      *providers.Set
	store    *knowledge.Store
	registry *tools.Registry
	recorder *analytics.Recorder
	metrics  *analytics.Metrics
	notifier *notify.Dispatcher
	watchdog *watchdog.Service
	sessions *session.Manager
	loop     *agent.Loop
	channels *channels.Manager
	gateway  *gateway.Server
}

func (c *Container) Config() *config.Config        { return c.cfg }
func (c *Container) Bus() bus.Bus                  { return c.b }
func (c *Container) Backends() *providers.Set      { return c.set }
func (c *Container) Store() *knowledge.Store       { return c.store }
func (c *Container) Registry() *tools.Registry     { return c.registry }
func (c *Container) Recorder() *analytics.Recorder { return c.recorder }
func (c *Container) Metrics() *analytics.Metrics   { return c.metrics }
func (c *Container) Notifier() *notify.Dispatcher  { return c.notifier }
func (c *Container) Watchdog() *watchdog.Service   { return c.watchdog }
func (c *Container) Sessions() *session.Manager    { return c.sessions }
func (c *Container) Loop() *agent.Loop             { return c.loop }
func (c *Container) Channels() *channels.Manager   { return c.channels }
func (c *Container) Gateway() *gateway.Server      { return c.gateway }

// WarmKnowledge loads the retrieval snapshot, or builds and persists it from
// the embedded catalog when no usable snapshot exists. Building needs the
// embedding backend, so callers decide how hard to fail.
func (c *Container) WarmKnowledge(ctx context.Context) error {
	return c.store.LoadOrBuild(ctx, c.cfg.SnapshotPath())
}

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newMessageBus); err != nil {
		return nil, err
	}
	if err := d.Provide(newBackendSet); err != nil {
		return nil, err
	}
	if err := d.Provide(newBackends); err != nil {
		return nil, err
	}
	if err := d.Provide(newEmbedder); err != nil {
		return nil, err
	}
	if err := d.Provide(newStore); err != nil {
		return nil, err
	}
	if err := d.Provide(newRegistry); err != nil {
		return nil, err
	}
	if err := d.Provide(newMetrics); err != nil {
		return nil, err
	}
	if err := d.Provide(newRecorder); err != nil {
		return nil, err
	}
	if err := d.Provide(newNotifier); err != nil {
		return nil, err
	}
	if err := d.Provide(newWatchdog); err != nil {
		return nil, err
	}
	if err := d.Provide(newSessionManager); err != nil {
		return nil, err
	}
	if err := d.Provide(newToolLoop); err != nil {
		return nil, err
	}
	if err := d.Provide(newOrchestrator); err != nil {
		return nil, err
	}
	if err := d.Provide(newAgentLoop); err != nil {
		return nil, err
	}
	if err := d.Provide(newChannelManager); err != nil {
		return nil, err
	}
	if err := d.Provide(newGateway); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		b bus.Bus,
		set *providers.Set,
		store *knowledge.Store,
		registry *tools.Registry,
		recorder *analytics.Recorder,
		metrics *analytics.Metrics,
		notifier *notify.Dispatcher,
		wd *watchdog.Service,
		sessions *session.Manager,
		loop *agent.Loop,
		chans *channels.Manager,
		gw *gateway.Server,
	) {
		result = &Container{
			cfg:      cfg,
			b:        b,
			set:      set,
			store:    store,
			registry: registry,
			recorder: recorder,
			metrics:  metrics,
			notifier: notifier,
			watchdog: wd,
			sessions: sessions,
			loop:     loop,
			channels: chans,
			gateway:  gw,
		}
	})
	return result, err
}

func newMessageBus() bus.Bus {
	return bus.NewMessageBus(100)
}

func newBackendSet(cfg *config.Config) *providers.Set {
	return providers.NewSet(providers.Params{
		OpenAIKey:        cfg.Providers.OpenAI.APIKey,
		OpenAIBase:       cfg.Providers.OpenAI.APIBase,
		OpenAIModel:      cfg.Providers.OpenAI.Model,
		OpenAIEmbedModel: cfg.Providers.OpenAI.EmbeddingModel,
		OpenAIImageModel: cfg.Providers.OpenAI.ImageModel,

		AnthropicKey:       cfg.Providers.Anthropic.APIKey,
		AnthropicBase:      cfg.Providers.Anthropic.APIBase,
		AnthropicModel:     cfg.Providers.Anthropic.Model,
		AnthropicMaxTokens: cfg.Providers.Anthropic.MaxTokens,

		GeminiKey:   cfg.Providers.Gemini.APIKey,
		GeminiModel: cfg.Providers.Gemini.Model,
	})
}

// newBackends fixes the canonical fallback order: openai, claude, gemini.
func newBackends(set *providers.Set) []providers.Backend {
	return []providers.Backend{set.OpenAI, set.Claude, set.Gemini}
}

// newEmbedder picks the embedding backend. Only OpenAI serves embeddings.
func newEmbedder(set *providers.Set) knowledge.Embedder {
	return set.OpenAI
}

func newStore(cfg *config.Config, embedder knowledge.Embedder) *knowledge.Store {
	return knowledge.NewStore(embedder, cfg.Retrieval.TopK, cfg.Retrieval.RelevanceThreshold)
}

// newRegistry assembles the six customer-facing tools.
func newRegistry(set *providers.Set, store *knowledge.Store) (*tools.Registry, error) {
	return tools.NewRegistry(
		tools.NewTicketPriceTool(),
		tools.NewFlightStatusTool(),
		tools.NewBookingLookupTool(),
		tools.NewRefundTool(airline.NewRefundLedger()),
		tools.NewDestinationImageTool(set.OpenAI, filepath.Join(config.DataDir(), "images")),
		knowledge.NewSearchTool(store),
	)
}

func newMetrics() *analytics.Metrics {
	return analytics.NewMetrics()
}

func newRecorder(m *analytics.Metrics) *analytics.Recorder {
	return analytics.NewRecorder(m)
}

func newNotifier() *notify.Dispatcher {
	return notify.NewDispatcher()
}

func newWatchdog(cfg *config.Config, recorder *analytics.Recorder, notifier *notify.Dispatcher) *watchdog.Service {
	return watchdog.NewService(recorder, notifier, watchdog.Options{
		Schedule:     cfg.Watchdog.Schedule,
		ErrorRatePct: cfg.Watchdog.ErrorRatePct,
		MinExchanges: cfg.Watchdog.MinExchanges,
		AvgLatencyMs: cfg.Watchdog.AvgLatencyMs,
	})
}

func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.SessionsDir())
}

func newToolLoop(registry *tools.Registry) *agent.ToolLoop {
	return agent.NewToolLoop(registry)
}

func newOrchestrator(
	backends []providers.Backend,
	loop *agent.ToolLoop,
	recorder *analytics.Recorder,
	notifier *notify.Dispatcher,
	cfg *config.Config,
) *agent.Orchestrator {
	return agent.NewOrchestrator(backends, loop, recorder, notifier, cfg.Agent)
}

func newAgentLoop(b bus.Bus, orch *agent.Orchestrator, sessions *session.Manager, cfg *config.Config) *agent.Loop {
	return agent.NewLoop(b, orch, sessions, cfg.Agent.MaxHistory)
}

func newChannelManager(cfg *config.Config, b bus.Bus) *channels.Manager {
	return channels.NewManager(cfg, b)
}

func newGateway(
	cfg *config.Config,
	loop *agent.Loop,
	recorder *analytics.Recorder,
	metrics *analytics.Metrics,
	mgr *channels.Manager,
) *gateway.Server {
	return gateway.NewServer(cfg.Gateway, loop, recorder, metrics, mgr.WebChat())
}
