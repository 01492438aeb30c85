package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"msauth/internal/auth"
	"msauth/internal/browser"
	"msauth/internal/cli"
	"msauth/internal/config"
	"msauth/internal/metrics"
	"msauth/internal/token"
	"msauth/pkg/logging"
	"msauth/pkg/oauth"
)

// Supported --save backends.
const (
	saveRoadtools  = "roadtools"
	saveKubernetes = "kubernetes"
)

// Seams replaced in tests.
var (
	newLauncher = func(execPath string, logger *slog.Logger) browser.Launcher {
		return browser.NewChromeLauncher(execPath, logger)
	}

	newSecretPersister = func(namespace, name string) (token.Persister, error) {
		return token.NewSecretPersisterFromEnvironment(namespace, name)
	}

	tokenClientOptions []oauth.ClientOption
)

type loginFlags struct {
	cli.OutputFlags

	prtCookie  string
	headless   bool
	scopes     []string
	tenant     string
	timeout    time.Duration
	refresh    bool
	save       string
	savePath   string
	namespace  string
	secretName string
	logLevel   string
	showScopes bool
	statusAddr string
	chromePath string
	configPath string
}

func (f *loginFlags) register(cmd *cobra.Command) {
	defaultConfigPath, err := config.GetDefaultConfigPath()
	if err != nil {
		defaultConfigPath = ""
	}

	cli.RegisterOutputFlags(cmd, &f.OutputFlags, cli.OutputFormatJSON)

	flags := cmd.Flags()
	flags.StringVar(&f.prtCookie, "prt-cookie", "", "x-ms-RefreshTokenCredential cookie for SSO, '-' to prompt (env: "+config.EnvPRTCookie+")")
	flags.BoolVar(&f.headless, "headless", false, "Run the browser without a window")
	flags.StringArrayVar(&f.scopes, "scope", nil, "Additional scope to request (repeatable)")
	flags.StringVar(&f.tenant, "tenant", "", "Tenant id or domain, default 'common' (env: "+config.EnvTenant+")")
	flags.DurationVar(&f.timeout, "timeout", auth.DefaultLoginTimeout, "How long to wait for the login to complete")
	flags.BoolVar(&f.refresh, "refresh", false, "Keep running and refresh the access token before it expires")
	flags.StringVar(&f.save, "save", "", "Persist tokens: roadtools or kubernetes")
	flags.StringVar(&f.savePath, "save-path", token.DefaultRoadtoolsPath, "File written by --save roadtools")
	flags.StringVar(&f.namespace, "namespace", "", "Namespace of the Secret written by --save kubernetes (default: default)")
	flags.StringVar(&f.secretName, "secret-name", token.DefaultSecretName, "Name of the Secret written by --save kubernetes")
	flags.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (env: "+config.EnvLogLevel+")")
	flags.BoolVar(&f.showScopes, "show-scopes", false, "Print the scopes the profile requests and exit")
	flags.StringVar(&f.statusAddr, "status-addr", "", "Serve /healthz and /metrics on this address in --refresh mode")
	flags.StringVar(&f.chromePath, "chrome-path", "", "Chrome or Chromium binary (default: auto-detect)")
	flags.StringVar(&f.configPath, "config-path", defaultConfigPath, "Configuration directory")
}

// validate checks the flag combination.
func (f *loginFlags) validate() error {
	if err := f.OutputFlags.Validate(); err != nil {
		return err
	}
	switch f.save {
	case "", saveRoadtools, saveKubernetes:
	default:
		return fmt.Errorf("unsupported --save backend %q (supported: %s, %s)", f.save, saveRoadtools, saveKubernetes)
	}
	if f.timeout <= 0 {
		return fmt.Errorf("--timeout must be positive")
	}
	if f.statusAddr != "" && !f.refresh {
		return fmt.Errorf("--status-addr requires --refresh")
	}
	return nil
}

// newLogger creates the command logger. The level comes from the flag, the
// environment or the configuration file, in that order.
func newLogger(w io.Writer, flagLevel, configLevel string) (*slog.Logger, error) {
	level := flagLevel
	if level == "" {
		level = config.EnvOr(config.EnvLogLevel, configLevel)
	}
	if level == "" {
		level = "info"
	}
	parsed, err := logging.ParseLogLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.New(parsed, w), nil
}

func runLogin(cmd *cobra.Command, profileName string, flags *loginFlags) error {
	if err := config.LoadEnv(".env"); err != nil {
		return err
	}
	if err := flags.validate(); err != nil {
		return err
	}

	cfg, err := config.LoadConfig(flags.configPath, nil)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	logger, err := newLogger(stderr, flags.logLevel, cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.BridgeControllerRuntime(logger)

	app, err := cfg.Get(profileName)
	if err != nil {
		return err
	}
	if profileName == "" {
		profileName = cfg.DefaultProfile
	}

	tenant := flags.tenant
	if tenant == "" {
		tenant = config.EnvOr(config.EnvTenant, "")
	}
	if tenant != "" {
		app.Tenant = tenant
	}

	if flags.showScopes {
		return printScopes(cmd.OutOrStdout(), app, flags.scopes)
	}

	ssoCookie, err := resolveSSOCookie(flags.prtCookie, stderr)
	if err != nil {
		return err
	}

	printer, err := cli.NewPrinter(cmd.OutOrStdout(), flags.Output, flags.Template)
	if err != nil {
		return err
	}

	persister, err := newPersister(flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var current atomic.Pointer[token.Lifecycle]
	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(registry, func() time.Duration {
		if lc := current.Load(); lc != nil {
			return lc.ExpiresIn()
		}
		return 0
	})
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	lifecycleOpts := []token.Option{token.WithObserver(recorder)}
	if persister != nil {
		lifecycleOpts = append(lifecycleOpts, token.WithPersister(persister))
	}

	clientOpts := append([]oauth.ClientOption{oauth.WithLogger(logging.With(logger, "oauth"))}, tokenClientOptions...)
	authenticator := auth.NewAuthenticator(
		newLauncher(flags.chromePath, logging.With(logger, "browser")),
		oauth.NewClient(clientOpts...),
		auth.WithLogger(logger),
	)

	logger.Info("Using profile", "profile", app.Name, "client_id", app.ClientID)

	progress := cli.NewProgress(stderr, "Waiting for the interactive login to complete...", flags.Quiet || flags.headless)
	progress.Start()

	result, err := authenticator.Authenticate(ctx, app, auth.LoginOptions{
		ExtraScopes:      flags.scopes,
		SSOCookie:        ssoCookie,
		Headless:         flags.headless,
		Timeout:          flags.timeout,
		LifecycleOptions: lifecycleOpts,
	})
	if err != nil {
		progress.Fail("Login failed")
		return &cli.LoginFailedError{Profile: profileName, Reason: err}
	}
	progress.Succeed("Tokens acquired")

	lc := result.Lifecycle
	current.Store(lc)

	scope := lc.Scope()
	if scope == "" {
		scope = "(no scp claim present)"
	}
	logger.Info("Access token scopes", "scope", scope)

	if err := printer.Print(cli.NewTokenView(app.Name, result.TokenSet, lc)); err != nil {
		return err
	}

	if err := lc.Persist(ctx); err != nil {
		// The tokens were printed already; a failed save does not fail the login.
		fmt.Fprintln(stderr, cli.FormatWarning(err.Error()))
		if hint := cli.Guidance(err); hint != "" {
			fmt.Fprintln(stderr, hint)
		}
	} else if persister != nil && !flags.Quiet {
		fmt.Fprintln(stderr, cli.FormatSuccess("Tokens saved to "+persister.Location()))
	}

	if !flags.refresh {
		return nil
	}
	return runRefresh(ctx, lc, registry, flags.statusAddr, logger)
}

// runRefresh keeps the tokens fresh until ctx ends or the refresher gives up.
func runRefresh(ctx context.Context, lc *token.Lifecycle, registry *prometheus.Registry, statusAddr string, logger *slog.Logger) error {
	notifier := cli.NewServiceNotifier(logger)

	g, gctx := errgroup.WithContext(ctx)

	if statusAddr != "" {
		srv, err := metrics.Listen(statusAddr, metrics.NewRouter(lc, registry), logging.With(logger, "status"))
		if err != nil {
			return err
		}
		g.Go(func() error {
			return srv.Serve(gctx)
		})
	}

	lc.StartAutoRefresh(ctx)
	defer lc.StopAutoRefresh()

	logger.Info("Background refresh started", "expires_on", lc.ExpiresOn().Format(time.RFC3339))
	notifier.Ready()

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			notifier.Status(fmt.Sprintf("access token expires in %s", lc.ExpiresIn().Round(time.Second)))
			select {
			case <-gctx.Done():
				return nil
			case <-lc.Done():
				// Done also closes on shutdown; Err is nil then.
				return lc.Err()
			case <-ticker.C:
			}
		}
	})

	err := g.Wait()
	notifier.Stopping()
	logger.Info("Background refresh stopped")
	return err
}

func printScopes(out io.Writer, app config.AppConfig, extra []string) error {
	scopes := append(append([]string(nil), app.Scopes...), extra...)

	fmt.Fprintf(out, "%s (%s)\n", app.Name, app.ClientID)
	for _, s := range scopes {
		fmt.Fprintf(out, "  %s\n", s)
	}
	fmt.Fprintf(out, "Requested scope: %s\n", oauth.BuildScope(scopes))
	return nil
}

// resolveSSOCookie returns the SSO cookie from the flag or the environment,
// prompting for it when the value is "-".
func resolveSSOCookie(flagValue string, promptOut io.Writer) (string, error) {
	value := flagValue
	if value == "" {
		value = config.EnvOr(config.EnvPRTCookie, "")
	}
	if value != "-" {
		return strings.TrimSpace(value), nil
	}
	return cli.ReadSecret(os.Stdin, promptOut, "x-ms-RefreshTokenCredential: ")
}

func newPersister(flags *loginFlags) (token.Persister, error) {
	switch flags.save {
	case saveRoadtools:
		return token.NewFilePersister(flags.savePath), nil
	case saveKubernetes:
		return newSecretPersister(flags.namespace, flags.secretName)
	default:
		return nil, nil
	}
}
