package flows

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	packagev1 "buf.build/gen/go/safedep/api/protocolbuffers/go/safedep/messages/package/v1"
	"github.com/safedep/dry/log"
	"github.com/safe-chain/guard/analyzer"
	"github.com/safe-chain/guard/config"
	"github.com/safe-chain/guard/internal/eventlog"
	"github.com/safe-chain/guard/internal/pipconfig"
	"github.com/safe-chain/guard/internal/ui"
	"github.com/safe-chain/guard/packagemanager"
	"github.com/safe-chain/guard/proxy"
	"github.com/safe-chain/guard/proxy/certmanager"
	"github.com/safe-chain/guard/proxy/interceptors"
)

// proxyStopTimeout is the soft deadline for shutting down the proxy
// listener. Stop is force-resolved after it so wrapper shutdown can never
// hang on a lingering connection.
const proxyStopTimeout = 1 * time.Second

type proxyFlow struct {
	pm              packagemanager.PackageManager
	packageResolver packagemanager.PackageResolver
	hooks           []Hook
}

// ProxyFlow creates a new proxy-based flow for package manager protection
func ProxyFlow(pm packagemanager.PackageManager, packageResolver packagemanager.PackageResolver, hooks ...Hook) *proxyFlow {
	return &proxyFlow{
		pm:              pm,
		packageResolver: packageResolver,
		hooks:           hooks,
	}
}

// Run executes the proxy-based flow. The heavy lifting happens in run so
// that every deferred cleanup (proxy stop, pip config removal) fires before
// the process exits with the computed status code.
func (f *proxyFlow) Run(ctx context.Context, args []string, parsedCmd *packagemanager.ParsedCommand) error {
	exitCode, err := f.run(ctx, args, parsedCmd)
	if err != nil {
		return err
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}

	return nil
}

// run returns the process exit code per the precedence: fatal startup error
// (returned as error) > pre-scan disallowed > pre-scan timeout (error) >
// proxy-blocked malware > child exit status > 0.
func (f *proxyFlow) run(ctx context.Context, args []string, parsedCmd *packagemanager.ParsedCommand) (int, error) {
	for _, h := range f.hooks {
		var err error
		ctx, err = h.BeforeFlow(ctx, parsedCmd)
		if err != nil {
			return 0, fmt.Errorf("flow hook failed: %w", err)
		}
	}

	cfg := config.Get()

	if cfg.DryRun {
		ui.SetStatus("Running in dry-run mode (proxy mode)")
		log.Infof("Dry-run mode: Would execute %s with proxy protection", f.pm.Name())
		log.Infof("Dry-run mode: Command would be: %s %v", parsedCmd.Command.Exe, parsedCmd.Command.Args)
		ui.ClearStatus()
		return 0, nil
	}

	ui.SetStatus("Initializing proxy protection...")

	// Load or create the persistent root CA and the combined bundle for
	// Python clients. Missing CA material is fatal: without a trusted root
	// the MITM proxy cannot terminate TLS.
	caCertPath, caKeyPath, bundlePath, err := caPaths()
	if err != nil {
		return 0, fmt.Errorf("failed to compute CA paths: %w", err)
	}

	ca, err := certmanager.LoadOrGenerateCA(certmanager.DefaultCertManagerConfig(), caCertPath, caKeyPath)
	if err != nil {
		return 0, fmt.Errorf("failed to set up proxy CA: %w", err)
	}

	if err := certmanager.WriteCombinedBundle(ca, bundlePath); err != nil {
		return 0, fmt.Errorf("failed to write CA bundle: %w", err)
	}

	certMgr, err := certmanager.NewCertificateManagerWithCA(ca, certmanager.DefaultCertManagerConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to create certificate manager: %w", err)
	}

	// Create the malware oracle. It is loaded once and shared by the
	// pre-scan audit and the live interceptors.
	oracle, err := f.createAnalyzer()
	if err != nil {
		return 0, fmt.Errorf("failed to create analyzer: %w", err)
	}

	ecosystem := f.pm.Ecosystem()
	if !interceptors.IsSupported(ecosystem) {
		return 0, fmt.Errorf("proxy mode is not supported for %s", ecosystem.String())
	}

	// Pre-scan the command's dependency updates before anything runs. A
	// disallowed change or a timed-out scan means the child never starts.
	auditCounters := analyzer.NewAuditCounters()

	preScan, err := f.preScanCommand(ctx, oracle, parsedCmd, auditCounters)
	if err != nil {
		return 0, err
	}

	if preScan != nil && !preScan.IsAllowed {
		ui.ClearStatus()
		ui.RenderDisallowedChanges(preScan.Disallowed)
		return finalExitCode(true, false, 0), nil
	}

	cache := interceptors.NewInMemoryAnalysisCache()
	state := proxy.NewStateCollector()

	confirmationChan := make(chan *interceptors.ConfirmationRequest, 10)
	defer close(confirmationChan)

	interaction := interceptors.UserInteraction{
		SetStatus:                ui.SetStatus,
		ClearStatus:              ui.ClearStatus,
		ShowWarning:              ui.ShowWarning,
		GetConfirmationOnMalware: ui.GetConfirmationOnMalware,
	}

	factory := interceptors.NewInterceptorFactory(oracle, cache, state, confirmationChan, interaction)
	interceptor, err := factory.CreateInterceptor(ecosystem)
	if err != nil {
		return 0, fmt.Errorf("failed to create interceptor for %s: %w", ecosystem.String(), err)
	}

	log.Debugf("Created %s interceptor for ecosystem %s", interceptor.Name(), ecosystem.String())

	proxyServer, proxyAddr, err := f.createAndStartProxyServer(certMgr, interceptor)
	if err != nil {
		return 0, fmt.Errorf("failed to start proxy server: %w", err)
	}

	// Always stop the proxy in a cleanup stage, bounded so shutdown cannot
	// hang on a lingering connection.
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), proxyStopTimeout)
		defer cancel()

		if err := proxyServer.Stop(shutdownCtx); err != nil {
			log.Debugf("Proxy server stop: %v", err)
		}
	}()

	ui.ClearStatus()
	log.Infof("Proxy server started on %s", proxyAddr)
	log.Infof("Running %s with proxy protection enabled", f.pm.Name())

	eventlog.LogInstallStarted(f.pm.Name(), parsedCmd.Command.Args)

	childExit, err := f.executeWithProxy(ctx, parsedCmd, proxyAddr, caCertPath, bundlePath, confirmationChan, interaction)
	if err != nil {
		return 0, err
	}

	// Blocked malware wins over the child's own exit status.
	proxyBlocked := !state.VerifyNoMaliciousPackages()

	if proxyBlocked {
		ui.RenderBlockedDownloads(state.BlockedRequests())
		f.reportRun(factory.Stats(), auditCounters, ui.OutcomeBlocked)
	} else {
		f.reportRun(factory.Stats(), auditCounters, ui.OutcomeSuccess)

		if state.HasSuppressedVersions() {
			ui.ShowSuppressedVersionsHint(cfg.Config.MinimumPackageAgeHours)
		}
	}

	return finalExitCode(false, proxyBlocked, childExit), nil
}

func caPaths() (certPath, keyPath, bundlePath string, err error) {
	if certPath, err = config.CACertPath(); err != nil {
		return "", "", "", err
	}

	if keyPath, err = config.CAKeyPath(); err != nil {
		return "", "", "", err
	}

	if bundlePath, err = config.CABundlePath(); err != nil {
		return "", "", "", err
	}

	return certPath, keyPath, bundlePath, nil
}

// createAnalyzer picks the malware oracle for this run. A local dataset, if
// present, serves lookups offline; otherwise the remote malysis analyzers
// are used (active scan in paranoid mode, query mode by default).
func (f *proxyFlow) createAnalyzer() (analyzer.PackageVersionAnalyzer, error) {
	cfg := config.Get()

	if datasetPath, err := config.MalwareDatasetPath(); err == nil {
		if _, statErr := os.Stat(datasetPath); statErr == nil {
			log.Debugf("Using local malware dataset at %s", datasetPath)
			return analyzer.NewLocalMalwareOracle(analyzer.LocalMalwareOracleConfig{DatasetPath: datasetPath})
		}
	}

	if cfg.Config.Paranoid {
		log.Debugf("Creating malysis active scan analyzer (paranoid mode)")
		return analyzer.NewMalysisActiveScanAnalyzer(analyzer.DefaultMalysisActiveScanAnalyzerConfig())
	}

	log.Debugf("Creating malysis query analyzer")
	return analyzer.NewMalysisQueryAnalyzer(analyzer.MalysisQueryAnalyzerConfig{})
}

// createAndStartProxyServer creates and starts the proxy server with the given interceptor
func (f *proxyFlow) createAndStartProxyServer(
	certMgr certmanager.CertificateManager,
	interceptor proxy.Interceptor,
) (proxy.ProxyServer, string, error) {
	proxyConfig := &proxy.ProxyConfig{
		ListenAddr:  "127.0.0.1:0",
		CertManager: certMgr,
		EnableMITM:  true,
		Interceptors: []proxy.Interceptor{
			interceptor,
			interceptors.NewAuditLoggerInterceptor(),
		},
		ConnectTimeout: 30 * time.Second,
		RequestTimeout: 5 * time.Minute,
	}

	proxyServer, err := proxy.NewProxyServer(proxyConfig)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create proxy server: %w", err)
	}

	if err := proxyServer.Start(); err != nil {
		return nil, "", fmt.Errorf("failed to start proxy server: %w", err)
	}

	proxyAddr := proxyServer.Address()
	if proxyAddr == "" {
		return nil, "", fmt.Errorf("proxy server started but address is empty")
	}

	return proxyServer, proxyAddr, nil
}

// executeWithProxy runs the wrapped package manager with the proxy
// environment applied and returns its exit code.
func (f *proxyFlow) executeWithProxy(ctx context.Context, parsedCmd *packagemanager.ParsedCommand,
	proxyAddr, caCertPath, bundlePath string, confirmationChan chan *interceptors.ConfirmationRequest,
	interaction interceptors.UserInteraction,
) (int, error) {
	proxyURL, err := proxyURLForAddr(proxyAddr)
	if err != nil {
		return 0, err
	}

	overrides := map[string]string{
		"HTTPS_PROXY":             proxyURL,
		"HTTP_PROXY":              proxyURL,
		"GLOBAL_AGENT_HTTP_PROXY": proxyURL,
		"NODE_EXTRA_CA_CERTS":     caCertPath,
		"NPM_CONFIG_PROGRESS":     "false",
	}

	if f.pm.Ecosystem() == packagev1.Ecosystem_ECOSYSTEM_PYPI {
		overrides["SSL_CERT_FILE"] = bundlePath
		overrides["REQUESTS_CA_BUNDLE"] = bundlePath
		overrides["PIP_CERT"] = bundlePath

		// pip honors a single config file, so the user's own settings are
		// merged into a fresh temporary file rather than mutated in place.
		pipConfigPath, err := pipconfig.Materialize(os.Getenv("PIP_CONFIG_FILE"), bundlePath, proxyURL)
		if err != nil {
			return 0, fmt.Errorf("failed to materialize pip config: %w", err)
		}
		defer pipconfig.Cleanup(pipConfigPath)

		overrides["PIP_CONFIG_FILE"] = pipConfigPath
	}

	cmd := exec.CommandContext(ctx, parsedCmd.Command.Exe, parsedCmd.Command.Args...)
	cmd.Env = mergeEnvironment(os.Environ(), overrides)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	log.Debugf("Executing command: %s %v", parsedCmd.Command.Exe, parsedCmd.Command.Args)
	log.Debugf("Proxy environment: HTTPS_PROXY=%s, NODE_EXTRA_CA_CERTS=%s", proxyURL, caCertPath)

	// The child inherits the terminal, so our own output is buffered while
	// it runs and flushed once it exits (or a termination signal arrives).
	ui.BeginBuffering()
	defer ui.EndBuffering()

	// Forward interrupt signals to the child so its own cleanup runs; the
	// flow's deferred cleanup follows once the child exits.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	go func() {
		for sig := range signals {
			ui.FlushBuffered()

			if cmd.Process != nil {
				_ = cmd.Process.Signal(sig)
			}
		}
	}()

	// Start confirmation handler in goroutine. Use confirmation hooks to pause and resume the executed
	// process to prevent stdout and stderr from being mixed up.
	go interceptors.HandleConfirmationRequests(confirmationChan, interaction, &interceptors.ConfirmationHook{
		BeforeInteraction: func([]*analyzer.PackageVersionAnalysisResult) error {
			if err := platformPauseProcess(cmd); err != nil {
				return fmt.Errorf("failed to pause process: %w", err)
			}

			return nil
		},
		AfterInteraction: func([]*analyzer.PackageVersionAnalysisResult, bool) error {
			if err := platformResumeProcess(cmd); err != nil {
				return fmt.Errorf("failed to resume process: %w", err)
			}

			return nil
		},
	})

	err = cmd.Run()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			log.Debugf("Command exited with status %d", exitErr.ExitCode())
			return exitErr.ExitCode(), nil
		}

		return 0, fmt.Errorf("failed to execute %s: %w", f.pm.Name(), err)
	}

	log.Debugf("Command completed successfully")
	return 0, nil
}

// proxyURLForAddr converts the proxy's listen address into the URL handed to
// the child via environment variables.
func proxyURLForAddr(proxyAddr string) (string, error) {
	_, port, err := net.SplitHostPort(proxyAddr)
	if err != nil {
		return "", fmt.Errorf("invalid proxy address %s: %w", proxyAddr, err)
	}

	return fmt.Sprintf("http://localhost:%s", port), nil
}

// mergeEnvironment overlays the proxy-required variables onto the caller's
// environment. The upper-cased names win: any user-provided variant of an
// override name, regardless of case, is dropped before ours is appended.
func mergeEnvironment(base []string, overrides map[string]string) []string {
	merged := make([]string, 0, len(base)+len(overrides))

	for _, entry := range base {
		name, _, ok := strings.Cut(entry, "=")
		if ok {
			if _, overridden := overrides[strings.ToUpper(name)]; overridden {
				continue
			}
		}

		merged = append(merged, entry)
	}

	for name, value := range overrides {
		merged = append(merged, name+"="+value)
	}

	return merged
}

// reportRun renders the end-of-run summary with the audit counters folded in.
func (f *proxyFlow) reportRun(stats *interceptors.AnalysisStatsCollector, counters *analyzer.AuditCounters, outcome ui.ExecutionOutcome) {
	cfg := config.Get()
	collected := stats.GetStats()

	preScanTotal, _, _ := counters.Snapshot()

	reportData := ui.NewReportData()
	reportData.PackageManagerName = f.pm.Name()
	reportData.DryRun = cfg.DryRun
	reportData.InsecureMode = cfg.InsecureInstallation
	reportData.TransitiveEnabled = cfg.Config.Transitive
	reportData.ParanoidMode = cfg.Config.Paranoid
	reportData.TotalAnalyzed = collected.TotalAnalyzed + preScanTotal
	reportData.AllowedCount = collected.AllowedCount
	reportData.ConfirmedCount = collected.ConfirmedCount
	reportData.BlockedCount = collected.BlockedCount
	reportData.BlockedPackages = stats.GetBlockedPackages()
	reportData.ConfirmedPackages = stats.GetConfirmedPackages()
	reportData.Outcome = outcome

	ui.Report(reportData)
}
