package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/candidash/internal/api"
	"github.com/felixgeelhaar/candidash/internal/auth"
	"github.com/felixgeelhaar/candidash/internal/config"
	cerrors "github.com/felixgeelhaar/candidash/internal/errors"
	"github.com/felixgeelhaar/candidash/internal/expiry"
	"github.com/felixgeelhaar/candidash/internal/gate"
	"github.com/felixgeelhaar/candidash/internal/log"
	"github.com/felixgeelhaar/candidash/internal/metrics"
	"github.com/felixgeelhaar/candidash/internal/permission"
	"github.com/felixgeelhaar/candidash/internal/session"
	"github.com/felixgeelhaar/candidash/internal/signup"
	"github.com/felixgeelhaar/candidash/internal/telemetry"
	"github.com/felixgeelhaar/candidash/internal/transport"
	"github.com/felixgeelhaar/candidash/internal/ux"
	"github.com/felixgeelhaar/candidash/internal/version"
)

// CommandContext holds everything a command needs: the resolved
// configuration, the logger, metrics, the output printer and, once opened,
// the session manager wired to the backend.
type CommandContext struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Metrics
	Printer *ux.Printer
	// Sources lists the configuration layers that were applied.
	Sources []string

	registry *prometheus.Registry
	cleanup  []func(context.Context) error

	bus     *expiry.Bus
	manager *auth.Manager
	client  *api.Client
	routes  *gate.RouteGate

	// rejected is set when Bootstrap dropped a persisted session.
	rejected bool
}

// NewCommandContext resolves configuration and flags for cmd and sets up
// logging, metrics and tracing.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	apiURL, _ := flags.GetString("api-url")
	format, _ := flags.GetString("format")
	noColor, _ := flags.GetBool("no-color")
	logLevel, _ := flags.GetString("log-level")

	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" || logLevel != "" {
		if apiURL != "" {
			cfg.APIURL = apiURL
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	printer, err := ux.NewPrinter(format, ux.PrinterOptions{Writer: cmd.OutOrStdout(), NoColor: noColor})
	if err != nil {
		return nil, cerrors.NewConfigInvalidError(err.Error())
	}

	logger := log.New(log.FromStrings(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()))
	log.SetDefaultLogger(logger)

	registry, m := metrics.NewRegistry()

	cc := &CommandContext{
		Config:   cfg,
		Logger:   logger,
		Metrics:  m,
		Printer:  printer,
		Sources:  loader.Sources(),
		registry: registry,
	}
	cc.setupTelemetry(cmd.Context())
	return cc, nil
}

func (c *CommandContext) setupTelemetry(ctx context.Context) {
	if !c.Config.Telemetry.Enabled {
		return
	}

	tcfg := telemetry.ProductionConfig(c.Config.Telemetry.Endpoint)
	tcfg.ServiceVersion = version.Version
	tcfg.SampleRate = c.Config.Telemetry.SampleRate

	shutdown, err := telemetry.InitProvider(ctx, tcfg)
	if err != nil {
		c.Logger.WithError(err).Warn("failed to initialize telemetry")
		return
	}
	c.Logger.Debug("telemetry enabled", "endpoint", tcfg.Endpoint, "sample_rate", tcfg.SampleRate)
	c.cleanup = append(c.cleanup, shutdown)
}

// Close records the command outcome, writes the metrics textfile and
// releases the backends.
func (c *CommandContext) Close(command string, elapsed time.Duration, runErr error) {
	c.Metrics.RecordCommand(command, runErr == nil, elapsed)
	if runErr != nil {
		c.Metrics.RecordError(errorCode(runErr))
	}

	if err := metrics.WriteTextfile(c.Config.Metrics.Textfile, c.registry); err != nil {
		c.Logger.WithError(err).Warn("failed to write metrics textfile", "path", c.Config.Metrics.Textfile)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		if err := c.cleanup[i](ctx); err != nil {
			c.Logger.WithError(err).Warn("cleanup failed")
		}
	}
	c.cleanup = nil
}

// Routes returns the console route gate.
func (c *CommandContext) Routes() *gate.RouteGate {
	if c.routes == nil {
		c.routes = gate.New(gate.DefaultRoutes())
		c.routes.Observer = c.Metrics
	}
	return c.routes
}

// Manager opens the session store and wires the manager, the credential
// transport and the expiry bus together. It does not touch the persisted
// session; see Bootstrap.
func (c *CommandContext) Manager(ctx context.Context) (*auth.Manager, error) {
	if c.manager != nil {
		return c.manager, nil
	}

	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}

	c.bus = expiry.New()
	var m *auth.Manager
	tr := transport.New(transport.CredentialsFunc(func() *session.Session { return m.Session() }), c.bus)
	tr.Scheme = c.Config.AuthScheme
	tr.Observer = c.Metrics

	client, err := c.newClient(tr)
	if err != nil {
		return nil, err
	}

	m = auth.NewManager(api.NewAuthService(client), store, auth.WithLogger(c.Logger))
	m.Watch(func(t auth.Transition) {
		c.Metrics.ObserveTransition(t.From.String(), t.To.String(), t.Reason)
		c.Logger.Debug("session state changed", "from", t.From.String(), "to", t.To.String(), "reason", t.Reason)
	})
	c.bus.Subscribe(c.Metrics.RecordExpirySignal)
	c.bus.Subscribe(m.OnSessionExpired)

	c.manager = m
	c.client = client
	return m, nil
}

// Bootstrap returns the manager after picking up the persisted session. A
// session the backend no longer accepts is dropped and reported through
// SessionRejected rather than as an error.
func (c *CommandContext) Bootstrap(ctx context.Context) (*auth.Manager, error) {
	m, err := c.Manager(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.Bootstrap(ctx); err != nil {
		if !auth.IsAuthError(err, auth.ErrValidationFailed) {
			return nil, err
		}
		c.rejected = true
		c.Logger.Info("persisted session rejected", "reason", auth.Message(err))
	}
	return m, nil
}

// SessionRejected reports whether Bootstrap dropped a persisted session.
func (c *CommandContext) SessionRejected() bool { return c.rejected }

// Client returns the authenticated backend client. Manager must have been
// called.
func (c *CommandContext) Client() *api.Client { return c.client }

// Require bootstraps the session and checks that it may open path. The
// decision is mapped to the error the CLI reports for it.
func (c *CommandContext) Require(ctx context.Context, path string) (*auth.Manager, error) {
	m, err := c.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}
	res := c.Routes().Check(m.Snapshot(), path)
	if err := decisionError(res, c.rejected); err != nil {
		return nil, err
	}
	return m, nil
}

// RequireAction is Require followed by a component check of the action's own
// requirement, for commands that change data behind a route with a weaker
// requirement.
func (c *CommandContext) RequireAction(ctx context.Context, path, action string, req *permission.Requirement) (*auth.Manager, error) {
	m, err := c.Require(ctx, path)
	if err != nil {
		return nil, err
	}
	if c.Routes().CheckComponent(m.Snapshot(), req) != gate.Show {
		return nil, cerrors.NewPermissionDeniedError(action, req.String())
	}
	return m, nil
}

// decisionError maps a denied route check to a coded error.
func decisionError(res gate.Result, rejected bool) error {
	switch res.Decision {
	case gate.RedirectLogin:
		if rejected {
			return cerrors.NewSessionExpiredError()
		}
		return cerrors.NewNotLoggedInError(res.AttemptedPath)
	case gate.RedirectUnauthorized:
		requirement := "a permission"
		if res.Route != nil && res.Route.Requirement != nil {
			requirement = res.Route.Requirement.String()
		}
		return cerrors.NewPermissionDeniedError(res.AttemptedPath, requirement)
	case gate.Pending:
		return cerrors.NewSessionPendingError()
	default:
		return nil
	}
}

// SignupFlow builds the candidate signup flow. Signup is anonymous, so its
// client carries no admin credentials and raises no expiry signal.
func (c *CommandContext) SignupFlow() (*signup.Flow, error) {
	tr := transport.New(nil, nil)
	tr.Observer = c.Metrics
	client, err := c.newClient(tr)
	if err != nil {
		return nil, err
	}

	path := c.Config.Signup.Path
	if path == "" {
		if path, err = signup.DefaultPath(); err != nil {
			return nil, err
		}
	}

	f := signup.NewFlow(api.NewSignupService(client), signup.NewFileStore(path),
		signup.WithLogger(c.Logger), signup.WithObserver(c.Metrics))
	if _, err := f.Resume(); err != nil {
		return nil, err
	}
	return f, nil
}

func (c *CommandContext) newClient(tr *transport.Transport) (*api.Client, error) {
	return api.NewClient(c.Config.APIURL,
		api.WithTransport(tr),
		api.WithTimeout(c.Config.Timeout),
		api.WithScheme(c.Config.AuthScheme),
		api.WithLogger(c.Logger),
	)
}

func (c *CommandContext) openStore(ctx context.Context) (session.Store, error) {
	sc := c.Config.Session
	switch sc.Backend {
	case config.BackendMemory:
		return session.NewMemoryStore(), nil
	case config.BackendRedis:
		store, closeFn, err := session.OpenRedisStore(ctx, sc.RedisURL, sc.RedisKey)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.ErrCodeSessionStore, "failed to open redis session store", err)
		}
		c.cleanup = append(c.cleanup, func(context.Context) error { return closeFn() })
		return store, nil
	default:
		path := sc.Path
		if path == "" {
			var err error
			if path, err = session.DefaultPath(); err != nil {
				return nil, cerrors.Wrap(cerrors.ErrCodeSessionStore, "failed to locate session file", err)
			}
		}
		return session.NewFileStore(path), nil
	}
}

// commandFunc is the body of a command.
type commandFunc func(ctx context.Context, cc *CommandContext, cmd *cobra.Command, args []string) error

// runE wraps fn with the command context, a span and the command metrics.
func runE(fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cc, err := NewCommandContext(cmd)
		if err != nil {
			return err
		}

		start := time.Now()
		ctx, span := telemetry.StartCommandSpan(cmd.Context(), cmd.CommandPath())
		defer func() {
			if err != nil {
				telemetry.RecordError(span, err)
			} else {
				telemetry.RecordSuccess(span, attribute.String("format", cc.Printer.Format()))
			}
			span.End()
			cc.Close(cmd.CommandPath(), time.Since(start), err)
		}()

		return fn(ctx, cc, cmd, args)
	}
}

func errorCode(err error) string {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return "unknown"
}

// backendError turns auth errors raised by console calls into the CLI's
// coded errors.
func (c *CommandContext) backendError(err error) error {
	switch {
	case auth.IsAuthError(err, auth.ErrSessionExpired):
		return cerrors.NewSessionExpiredError()
	case auth.IsAuthError(err, auth.ErrNetwork):
		return cerrors.NewBackendUnreachableError(c.Config.APIURL, err)
	default:
		return fmt.Errorf("backend request failed: %w", err)
	}
}
