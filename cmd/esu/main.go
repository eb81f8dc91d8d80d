// Command esu registers EV charging units with the GİB registry.
//
//	esu register [-input esu_list.csv] [-parallel] [-report] [-out gonderim_raporu.json]
//	esu update   [-input guncelleme.csv] [-parallel] [-report] [-out ...]
//	esu close    -serial AB535
//	esu serve
//
// Settings come from the environment (a .env file is loaded first) and the
// optional YAML file named by ESU_CONFIG_FILE.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/electroop-engineering/gib-esu/internal/batch"
	"github.com/electroop-engineering/gib-esu/internal/config"
	"github.com/electroop-engineering/gib-esu/internal/esu"
	"github.com/electroop-engineering/gib-esu/internal/gib"
	"github.com/electroop-engineering/gib-esu/internal/history"
	"github.com/electroop-engineering/gib-esu/internal/logging"
	"github.com/electroop-engineering/gib-esu/internal/records"
	"github.com/electroop-engineering/gib-esu/internal/web"
)

const usage = `usage: esu <command> [flags]

commands:
  register  register devices and their ownership status from an input file
  update    send ownership updates from an input file
  close     decommission one device
  serve     run the HTTP API
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}
	cmd, args := args[0], args[1:]

	// Overload lets .env win over inherited variables
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		return 1
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		return 1
	}
	defer a.close()

	switch cmd {
	case "register":
		return a.runBatch(ctx, batch.KindRegister, args)
	case "update":
		return a.runBatch(ctx, batch.KindUpdate, args)
	case "close":
		return a.closeDevice(ctx, args)
	case "serve":
		return a.serve(ctx)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

// app holds the collaborators shared by every command.
type app struct {
	cfg      *config.Config
	registry *prometheus.Registry
	metrics  *batch.Metrics
	svc      *gib.Service
	ledger   *history.Store
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := batch.NewMetrics(registry)

	client := gib.NewClient(cfg.GIB.BaseURL(), cfg.GIB.Credentials(),
		gib.WithHTTPClient(gib.NewHTTPClient(cfg.GIB.Timeout, cfg.GIB.VerifyTLS)),
		gib.WithObserver(metrics),
		gib.WithRequestLogging(cfg.GIB.LogRequests),
	)
	company := cfg.Company()
	slog.Info("registry configured",
		"base_url", client.BaseURL(),
		"firma_kodu", company.Code,
		"test_firma", cfg.GIB.UseTestCompany,
		"ssl_dogrulama", cfg.GIB.VerifyTLS,
	)

	a := &app{
		cfg:      cfg,
		registry: registry,
		metrics:  metrics,
		svc:      gib.NewService(client, company),
	}

	if !cfg.Database.Enabled() {
		slog.Info("run ledger disabled (DATABASE_URL not set)")
		return a, nil
	}

	store, err := history.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("run ledger connected", "database", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("run ledger connected")
	}
	a.ledger = store
	return a, nil
}

func (a *app) close() {
	if a.ledger != nil {
		a.ledger.Close()
	}
}

// orchestrator builds a batch orchestrator; report may be nil.
func (a *app) orchestrator(workers int, report batch.ReportWriter) *batch.Orchestrator {
	opts := []batch.Option{
		batch.WithWorkers(workers),
		batch.WithMetrics(a.metrics),
	}
	if a.ledger != nil {
		opts = append(opts, batch.WithRecorder(a.ledger))
	}
	if report != nil {
		opts = append(opts, batch.WithReport(report))
	}
	return batch.NewOrchestrator(a.svc, opts...)
}

func (a *app) runBatch(ctx context.Context, kind batch.Kind, args []string) int {
	fs := flag.NewFlagSet(string(kind), flag.ContinueOnError)
	input := fs.String("input", a.cfg.Batch.InputPath, "CSV or XLSX input file")
	parallel := fs.Bool("parallel", a.cfg.Batch.Parallel, "process records concurrently")
	workers := fs.Int("workers", a.cfg.Batch.Workers, "concurrent records in -parallel mode (0: NumCPU-2)")
	report := fs.Bool("report", a.cfg.Batch.WriteReport, "write the summary to -out")
	out := fs.String("out", a.cfg.Batch.ReportPath, "report file")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	columns := esu.RegistrationColumns
	if kind == batch.KindUpdate {
		columns = esu.UpdateColumns
	}

	sheet, err := records.ReadFile(*input)
	if err != nil {
		slog.Error("cannot read input", "path", *input, "error", err)
		return 1
	}
	if err := records.ValidateHeaders(sheet.Headers, columns); err != nil {
		slog.Error("invalid input", "path", *input, "error", err)
		return 1
	}
	slog.Info("input loaded", "path", *input, "rows", len(sheet.Rows), "encoding", sheet.Encoding)

	var rw batch.ReportWriter
	if *report {
		rw = batch.FileWriter{Path: *out}
	}
	orch := a.orchestrator(*workers, rw)

	var (
		summary any
		runID   string
	)
	switch kind {
	case batch.KindRegister:
		summary, runID, err = orch.Register(ctx, sheet.Rows, *parallel)
	default:
		summary, runID, err = orch.Update(ctx, sheet.Rows, *parallel)
	}

	if encErr := batch.EncodeReport(os.Stdout, summary); encErr != nil {
		slog.Error("cannot print summary", "error", encErr)
	}
	if err != nil {
		slog.Error("batch did not complete", "run_id", runID, "error", err)
		return 1
	}
	if *report {
		slog.Info("report written", "path", *out, "run_id", runID)
	}
	return 0
}

func (a *app) closeDevice(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("close", flag.ContinueOnError)
	serial := fs.String("serial", "", "serial number of the device to close (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*serial) == "" {
		fmt.Fprintln(os.Stderr, "-serial is required")
		return 2
	}

	resp, err := a.svc.CloseDevice(ctx, *serial)
	if err != nil {
		slog.Error("close failed", "esu_seri_no", *serial, "error", err)
		return 1
	}
	if err := batch.EncodeReport(os.Stdout, resp); err != nil {
		slog.Error("cannot print response", "error", err)
	}
	if !resp.OK() {
		slog.Warn("registry rejected closure", "esu_seri_no", *serial, "mesaj", resp.Message())
		return 1
	}
	return 0
}

func (a *app) serve(ctx context.Context) int {
	deps := web.Deps{
		Batches:  a.orchestrator(a.cfg.Batch.Workers, nil),
		Devices:  a.svc,
		Gatherer: a.registry,
	}
	if a.ledger != nil {
		deps.Runs = a.ledger
	}
	server := web.NewServer(a.cfg, deps)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			slog.Error("server stopped", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Error("shutdown error", "error", err)
		return 1
	} else if err != nil {
		slog.Warn("batch runs did not finish before shutdown timeout")
	}
	return 0
}
