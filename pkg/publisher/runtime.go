package publisher

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isabella232/iot-edge-opc-publisher/internal/adapters/audit"
	"github.com/isabella232/iot-edge-opc-publisher/internal/adapters/observability"
	opcadapter "github.com/isabella232/iot-edge-opc-publisher/internal/adapters/opcua"
	"github.com/isabella232/iot-edge-opc-publisher/internal/adapters/queue"
	"github.com/isabella232/iot-edge-opc-publisher/internal/app/config"
	"github.com/isabella232/iot-edge-opc-publisher/internal/app/pipeline"
	"github.com/isabella232/iot-edge-opc-publisher/internal/domain"
	"github.com/isabella232/iot-edge-opc-publisher/internal/nodeconfig"
	"github.com/isabella232/iot-edge-opc-publisher/internal/ports"
	"github.com/isabella232/iot-edge-opc-publisher/internal/registry"
	"github.com/isabella232/iot-edge-opc-publisher/internal/server"
)

// SessionDialer is a dialable protocol session: the SessionClient capability
// plus lifecycle.
type SessionDialer interface {
	ports.SessionClient
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
}

// SessionFactory builds the protocol session for one endpoint. Tests and
// embedders can substitute fakes.
type SessionFactory func(cfg opcadapter.Config) (SessionDialer, error)

// Option customizes the dependencies used by Runtime.
type Option func(*overrides)

type overrides struct {
	observability ports.Observability
	auditSink     ports.AuditSink
	factory       SessionFactory
	decryptor     ports.Decryptor
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) {
		o.observability = obs
	}
}

// WithAuditSink replaces the Postgres audit sink.
func WithAuditSink(s ports.AuditSink) Option {
	return func(o *overrides) {
		o.auditSink = s
	}
}

// WithSessionFactory replaces the gopcua-backed session factory.
func WithSessionFactory(f SessionFactory) Option {
	return func(o *overrides) {
		o.factory = f
	}
}

// WithDecryptor replaces the credential decryptor.
func WithDecryptor(d ports.Decryptor) Option {
	return func(o *overrides) {
		o.decryptor = d
	}
}

// Runtime wires configuration loading, the hierarchy registry, session
// management, persistence, and the observability/introspection servers into
// one embeddable unit.
type Runtime struct {
	cfg       *config.Config
	obs       ports.Observability
	registry  *registry.Registry
	file      *nodeconfig.File
	persister *nodeconfig.Persister
	auditQ    ports.AuditQueue
	auditSink ports.AuditSink
	factory   SessionFactory
	decryptor ports.Decryptor

	db         *sql.DB
	metricsSrv *http.Server
	apiSrv     *http.Server

	stopCh  chan struct{}
	doneWg  sync.WaitGroup
	dialers []SessionDialer
}

// New loads the published-nodes file and builds the runtime. Configuration
// errors other than per-node identifier problems are fatal here: a process
// that cannot interpret its node list must not start.
func New(cfg *config.Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	obs := o.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	var (
		db        *sql.DB
		auditSink = o.auditSink
		auditQ    ports.AuditQueue
		err       error
	)
	if auditSink == nil && cfg.Audit.ConnString != "" {
		db, err = sql.Open("postgres", cfg.Audit.ConnString)
		if err != nil {
			return nil, err
		}
		auditSink = audit.NewPostgresSink(db, cfg.Audit.Table)
	}
	if auditSink != nil {
		auditQ = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
	}

	var regOpts []registry.Option
	if auditQ != nil {
		regOpts = append(regOpts, registry.WithAuditQueue(auditQ))
	}
	reg := registry.New(registry.Defaults{
		PublishingInterval: cfg.Defaults.PublishingInterval,
		SamplingInterval:   cfg.Defaults.SamplingInterval,
		HeartbeatInterval:  cfg.Defaults.HeartbeatInterval,
		SkipFirst:          cfg.Defaults.SkipFirst,
	}, obs, regOpts...)

	file := nodeconfig.NewFile(cfg.Nodes.File)
	entries, err := nodeconfig.NewLoader(file, obs).Load()
	if err != nil {
		return nil, err
	}
	if err := reg.Build(entries); err != nil {
		return nil, err
	}

	factory := o.factory
	if factory == nil {
		factory = func(c opcadapter.Config) (SessionDialer, error) {
			return opcadapter.NewSessionClient(c)
		}
	}
	decryptor := o.decryptor
	if decryptor == nil {
		decryptor = plaintextDecryptor
	}

	return &Runtime{
		cfg:       cfg,
		obs:       obs,
		registry:  reg,
		file:      file,
		persister: nodeconfig.NewPersister(file, reg, obs),
		auditQ:    auditQ,
		auditSink: auditSink,
		factory:   factory,
		decryptor: decryptor,
		db:        db,
	}, nil
}

// Registry exposes the live hierarchy for query callers.
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Persister exposes the persistence coordinator.
func (r *Runtime) Persister() *nodeconfig.Persister { return r.persister }

// Start launches the session managers, the persistence ticker, the audit
// drain, and the metrics and introspection servers. It returns immediately;
// call Run to block on a context instead.
func (r *Runtime) Start() error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	r.stopCh = make(chan struct{})

	r.startMetrics()
	r.startAPI()

	if r.auditQ != nil && r.auditSink != nil {
		r.doneWg.Add(1)
		go func() {
			defer r.doneWg.Done()
			pipeline.RunAuditPipeline(r.auditQ, r.auditSink, r.cfg.Policy, r.obs, r.stopCh)
		}()
	}

	for _, s := range r.registry.Sessions() {
		r.startSessionManager(s)
	}

	r.doneWg.Add(1)
	go r.persistLoop()

	r.doneWg.Add(1)
	go r.recordGauges(time.Second)

	return nil
}

// Run starts the runtime and blocks until the context is cancelled, then
// attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.Shutdown(shutdownCtx)
}

// Shutdown persists one final snapshot and stops the servers and sessions.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	if r.stopCh != nil {
		close(r.stopCh)
	}

	if _, err := r.persister.Persist(); err != nil {
		errs = append(errs, err)
	}

	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if r.apiSrv != nil {
		if err := r.apiSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	for _, d := range r.dialers {
		if err := d.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	r.doneWg.Wait()

	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// startSessionManager drives connectivity for one endpoint and mirrors it
// into the registry. Retry cadence comes from session.reconnect_backoff.
func (r *Runtime) startSessionManager(s *registry.Session) {
	cred := ports.Credential{}
	if s.AuthMode() == domain.AuthUsernamePassword {
		enc := s.EncryptedCredential()
		decrypted, err := r.decryptor(*enc)
		if err != nil {
			r.obs.LogError("credential_decrypt_failed", err,
				ports.Field{Key: "endpoint", Value: s.EndpointURL()})
			return
		}
		cred = decrypted
	}

	dialer, err := r.factory(opcadapter.Config{
		EndpointURL:     s.EndpointURL(),
		UseSecurity:     s.UseSecurity(),
		AuthMode:        s.AuthMode(),
		Credential:      cred,
		ApplicationName: r.cfg.Session.ApplicationName,
		SecurityPolicy:  r.cfg.Session.SecurityPolicy,
	})
	if err != nil {
		r.obs.LogError("session_factory_failed", err,
			ports.Field{Key: "endpoint", Value: s.EndpointURL()})
		return
	}
	r.dialers = append(r.dialers, dialer)
	r.registry.AttachClient(s.EndpointURL(), dialer)

	r.doneWg.Add(1)
	go func() {
		defer r.doneWg.Done()
		backoff := r.cfg.Session.ReconnectBackoff
		for {
			select {
			case <-r.stopCh:
				return
			default:
			}

			if dialer.Connected() {
				r.registry.SetSessionState(s.EndpointURL(), ports.SessionConnected)
			} else {
				r.registry.SetSessionState(s.EndpointURL(), ports.SessionConnecting)
				ctx, cancel := context.WithTimeout(context.Background(), backoff)
				err := dialer.Connect(ctx)
				cancel()
				if err != nil {
					r.registry.SetSessionState(s.EndpointURL(), ports.SessionDisconnected)
					r.obs.LogError("session_connect_failed", err,
						ports.Field{Key: "endpoint", Value: s.EndpointURL()})
				} else {
					r.registry.SetSessionState(s.EndpointURL(), ports.SessionConnected)
				}
			}

			select {
			case <-r.stopCh:
				return
			case <-time.After(backoff):
			}
		}
	}()
}

func (r *Runtime) persistLoop() {
	defer r.doneWg.Done()
	ticker := time.NewTicker(r.cfg.Persist.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			written, err := r.persister.Persist()
			if err != nil || !written {
				continue
			}
			if r.auditQ != nil {
				r.auditQ.Enqueue(&domain.AuditEvent{
					ID:      uuid.New(),
					Type:    domain.AuditPersisted,
					Version: r.persister.LastWritten(),
					At:      time.Now().UTC(),
				})
			}
		}
	}
}

func (r *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.metricsSrv = &http.Server{
		Addr:    r.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}

func (r *Runtime) startAPI() {
	api := server.New(r.registry, r.persister, r.obs)
	r.apiSrv = &http.Server{
		Addr:    r.cfg.API.Addr,
		Handler: api.Router(),
	}

	go func() {
		if err := r.apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server exited: %v", err)
		}
	}()
}

func (r *Runtime) recordGauges(interval time.Duration) {
	defer r.doneWg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			counts := r.registry.Counts()
			r.obs.SetGauge("publisher_sessions_configured", float64(counts.ConfiguredSessions))
			r.obs.SetGauge("publisher_sessions_connected", float64(counts.ConnectedSessions))
			r.obs.SetGauge("publisher_items_monitored", float64(counts.MonitoredItems))
			r.obs.SetGauge("publisher_node_config_version", float64(r.registry.Version()))
		}
	}
}

// plaintextDecryptor handles the unencrypted "user:password" form used in
// test rigs. Production deployments swap it via WithDecryptor.
func plaintextDecryptor(encrypted string) (ports.Credential, error) {
	user, pass, ok := strings.Cut(encrypted, ":")
	if !ok {
		return ports.Credential{}, fmt.Errorf("credential is not in user:password form")
	}
	return ports.Credential{Username: user, Password: pass}, nil
}
