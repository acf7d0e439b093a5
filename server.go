// Package courtside composes the operator console embeddings: the HTTP API
// with its live stream and the SSH terminal console, both driving one
// scoreboard authority.
package courtside

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"

	"pkt.systems/courtside/core"
	"pkt.systems/courtside/httpapi"
	"pkt.systems/courtside/internal/appconfig"
	"pkt.systems/courtside/internal/auth"
	"pkt.systems/courtside/internal/authority"
	"pkt.systems/courtside/internal/authority/natsclient"
	"pkt.systems/courtside/internal/authority/wsclient"
	"pkt.systems/courtside/internal/dom"
	"pkt.systems/courtside/internal/eventbus"
	"pkt.systems/courtside/internal/input"
	"pkt.systems/courtside/schema"
	"pkt.systems/courtside/sshserver"
	"pkt.systems/pslog"
)

// Server composes the HTTP and SSH consoles.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// Transport is a Command Channel connection: commands go out and snapshots
// come back.
type Transport interface {
	authority.Transport
	core.StateSource
	Close() error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	Authority appconfig.AuthorityConfig
	Console   ConsoleConfig
	HTTP      httpapi.Config
	SSH       sshserver.Config
	Operators []appconfig.OperatorConfig
}

// ConsoleConfig is shared by every console the server hosts.
type ConsoleConfig struct {
	Variant   schema.Variant
	Notices   core.NoticeTimings
	Catalog   dom.Catalog
	Shortcuts []input.Shortcut
}

// ServerDeps captures dependencies required to build the server.
type ServerDeps struct {
	// Transport replaces the configured authority connection.
	Transport Transport
	Clock     clockwork.Clock
	Logger    pslog.Logger
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the HTTP API.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH console.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable courtside server. The authority connection is
// made by Start.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	if cfg.Console.Variant == "" {
		cfg.Console.Variant = schema.VariantPanel
	}
	if cfg.Console.Notices == (core.NoticeTimings{}) {
		cfg.Console.Notices = core.DefaultNoticeTimings()
	}
	if cfg.Console.Shortcuts == nil {
		cfg.Console.Shortcuts = input.DefaultShortcuts()
	}
	if _, err := input.NewKeyboard(cfg.Console.Shortcuts); err != nil {
		return nil, err
	}
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	var authStore *auth.Store
	if options.enableSSH {
		store, err := auth.NewStoreWithLogger(cfg.Operators, deps.Logger)
		if err != nil {
			return nil, err
		}
		authStore = store
	}
	return &compositeServer{
		cfg:       cfg,
		deps:      deps,
		options:   options,
		authStore: authStore,
	}, nil
}

type compositeServer struct {
	cfg       ServerConfig
	deps      ServerDeps
	options   serverOptions
	authStore *auth.Store

	httpSrv   *httpapi.Server
	sshSrv    *sshserver.Server
	fanout    *eventFanout
	transport Transport
	logger    pslog.Logger

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       chan error
	started     bool
	unsubscribe func()
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"authority", s.cfg.Authority.Transport,
		"authority_url", s.cfg.Authority.URL,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
		"variant", s.cfg.Console.Variant,
	)

	var hub *httpapi.Hub
	var bus *eventbus.Bus
	var sinks []stateSink
	if s.options.enableHTTP {
		hub = httpapi.NewHub(s.cfg.HTTP.HistorySize, log)
		sinks = append(sinks, hubSink{hub: hub})
	}
	if s.options.enableSSH {
		bus = eventbus.New(log)
		sinks = append(sinks, busSink{bus: bus})
	}
	s.fanout = newEventFanout(log, sinks...)

	transport := s.deps.Transport
	if transport == nil {
		dialed, err := dialAuthority(s.ctx, s.cfg.Authority, s.deps.Clock, s.fanout.OnChannel)
		if err != nil {
			log.Error("authority connect failed", "err", err)
			s.cancel()
			return err
		}
		transport = dialed
	}
	s.transport = transport
	s.unsubscribe = transport.Subscribe(s.fanout.OnState)

	client, err := authority.New(transport)
	if err != nil {
		s.cancel()
		return err
	}

	if s.options.enableHTTP {
		dispatcher, err := core.NewDispatcher(core.DispatcherConfig{
			Authority: client,
			Notices:   hub,
			Label:     catalogLabel(s.cfg.Console.Catalog),
		})
		if err != nil {
			s.cancel()
			return err
		}
		s.httpSrv = httpapi.NewServer(s.cfg.HTTP, s.fanout, dispatcher, hub)
		s.httpSrv.SetBaseContext(s.ctx)
		if err := client.RequestInitialState(s.ctx); err != nil {
			log.Warn("initial state request failed", "err", err)
		}
		go func() {
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	if s.options.enableSSH {
		s.sshSrv = &sshserver.Server{
			Addr:              s.cfg.SSH.Addr,
			HostKeyPath:       s.cfg.SSH.HostKeyPath,
			KeepaliveInterval: s.cfg.SSH.KeepaliveInterval,
			RenderInterval:    s.cfg.SSH.RenderInterval,
			Variant:           s.cfg.Console.Variant,
			Catalog:           s.cfg.Console.Catalog,
			Notices:           s.cfg.Console.Notices,
			Shortcuts:         s.cfg.Console.Shortcuts,
			Authority:         client,
			State:             s.fanout,
			Status:            s.fanout,
			AuthStore:         s.authStore,
			EventBus:          bus,
			Clock:             s.deps.Clock,
		}
		go func() {
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	unsubscribe := s.unsubscribe
	transport := s.transport
	s.unsubscribe = nil
	s.transport = nil
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if unsubscribe != nil {
		unsubscribe()
	}
	if transport != nil {
		if err := transport.Close(); err != nil {
			log.Warn("authority close failed", "err", err)
		} else {
			log.Info("authority closed")
		}
	}
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-s.ctx.Done():
		log.Info("server stopped")
		return nil
	}
}

// dialAuthority connects the configured Command Channel transport.
func dialAuthority(ctx context.Context, cfg appconfig.AuthorityConfig, clock clockwork.Clock, onStatus func(bool, error)) (Transport, error) {
	switch cfg.Transport {
	case appconfig.TransportNATS:
		return natsclient.Connect(ctx, natsclient.Config{
			URL:            cfg.URL,
			SubjectPrefix:  cfg.NATSSubjectPrefix,
			CommandTimeout: cfg.CommandTimeout,
			ReconnectWait:  cfg.ReconnectWait,
			OnStatus:       onStatus,
		})
	case appconfig.TransportWebSocket, "":
		return wsclient.Dial(ctx, wsclient.Config{
			URL:            cfg.URL,
			CommandTimeout: cfg.CommandTimeout,
			ReconnectMin:   cfg.ReconnectWait,
			Clock:          clock,
			OnStatus:       onStatus,
		})
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", schema.ErrChannelUnavailable, cfg.Transport)
	}
}

// catalogLabel resolves selection labels without a document, for consoles
// that have none.
func catalogLabel(catalog dom.Catalog) func(controlID, value string) string {
	return func(controlID, value string) string {
		var opts []core.Option
		switch controlID {
		case core.LocalTeamID, core.VisitTeamID:
			opts = catalog.Teams
		case core.GameTypeID:
			opts = catalog.GameTypes
		case core.OperatorTemplateID:
			opts = catalog.OperatorTemplates
		case core.DisplayTemplateID:
			opts = catalog.DisplayTemplates
		}
		for _, opt := range opts {
			if opt.Value == value && opt.Label != "" {
				return opt.Label
			}
		}
		return value
	}
}
