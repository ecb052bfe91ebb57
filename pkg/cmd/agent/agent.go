package agent

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // by design
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/util"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/db/postgres"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host/httphost"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host/natshost"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/journal"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/session"
)

func NewAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "runs the setup test agent",
		Long: `Runs the setup test session and exposes it via NATS and/or a local
http endpoint. Ticks and the StartSetupTest/StopSetupTest commands are received
from these surfaces, status changes are published to them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startAgent(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.HTTPAddr,
		"http-addr",
		"localhost:8765",
		"listen address of the local http surface (empty disables it)")
	cmd.Flags().StringVar(&config.GameName,
		"game",
		session.DefaultGameName,
		"only ticks of this game are processed (empty: all games)")
	cmd.Flags().BoolVar(&config.AbortOnContextChange,
		"abort-on-context-change",
		true,
		"abort a running setup test when car or track changes")
	cmd.Flags().IntVar(&config.TickQueueSize,
		"tick-queue-size",
		session.DefaultQueueSize,
		"number of pending ticks/commands before ticks are dropped")
	cmd.Flags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	cmd.Flags().IntVar(&config.ProfilingPort,
		"profiling-port",
		0,
		"port to use for providing profiling data")
	cmd.Flags().BoolVar(&config.PrintTicks,
		"print-ticks",
		false,
		"if true and log level is debug, tick payloads will be printed")
	return cmd
}

//nolint:funlen,cyclop // by design
func startAgent(parent context.Context) error {
	if _, err := util.SetupLogger(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if config.ProfilingPort > 0 {
		startProfiling(config.ProfilingPort)
	}
	telemetry := util.SetupTelemetry(ctx)
	if telemetry != nil {
		defer telemetry.Shutdown()
	}
	if err := util.WaitForRequiredServices(ctx); err != nil {
		return err
	}

	store := util.SettingsStore()
	go func() {
		if err := store.Watch(ctx); err != nil {
			log.Warn("settings file is not watched", log.ErrorField(err))
		}
	}()

	opts := []session.Option{
		session.WithAPI(util.NewAPIClient()),
		session.WithSettings(store.Get),
		session.WithGameName(config.GameName),
		session.WithAbortOnContextChange(config.AbortOnContextChange),
		session.WithQueueSize(config.TickQueueSize),
		session.WithPrintTicks(config.PrintTicks),
	}
	if pool := openJournal(ctx, telemetry != nil); pool != nil {
		defer pool.Close()
		opts = append(opts, session.WithReportObserver(journal.New(pool)))
	}
	controller := session.NewController(opts...)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		controller.Run(ctx)
	}()

	surfaces := []host.Surface{}
	if config.NatsURL != "" {
		conn, err := nats.Connect(config.NatsURL, nats.Name("auriga-agent"))
		if err != nil {
			return fmt.Errorf("could not connect to nats: %w", err)
		}
		defer conn.Close()
		ns, err := natshost.New(conn, controller,
			natshost.WithPrefix(config.NatsSubjectPrefix),
			natshost.WithPrintTicks(config.PrintTicks))
		if err != nil {
			return err
		}
		defer ns.Close()
		surfaces = append(surfaces, ns)
		log.Info("NATS surface ready", log.String("prefix", config.NatsSubjectPrefix))
	}
	if config.HTTPAddr != "" {
		hs := httphost.New(controller)
		surfaces = append(surfaces, hs)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := hs.ListenAndServe(ctx, config.HTTPAddr); err != nil {
				log.Error("http surface stopped", log.ErrorField(err))
				stop()
			}
		}()
	}
	if len(surfaces) == 0 {
		log.Warn("no host surface configured, use --nats-url or --http-addr")
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		host.Forward(ctx, controller, surfaces...)
	}()

	setupGoRoutinesDump()
	log.Info("Agent started", log.String("api", store.Get().APIURL))
	<-ctx.Done()
	log.Info("Agent terminating")
	wg.Wait()
	return nil
}

// openJournal connects to the journal database. The agent runs without
// journal if it is not configured or not reachable.
func openJournal(ctx context.Context, withOtlp bool) *pgxpool.Pool {
	if config.DB == "" {
		return nil
	}
	sqlLogger, err := util.NewLogger(config.SQLLogLevel)
	if err != nil {
		sqlLogger = log.Default()
	}
	tracers := []pgx.QueryTracer{postgres.NewLogTracer(sqlLogger.Named("sql"), log.DebugLevel)}
	if withOtlp {
		tracers = append(tracers, postgres.NewOtlpTracer())
	}
	pool, err := postgres.InitWithURL(ctx, config.DB, postgres.WithTracer(tracers...))
	if err != nil {
		log.Warn("journal disabled", log.ErrorField(err))
		return nil
	}
	return pool
}

func startProfiling(port int) {
	log.Info("Starting profiling server on port", log.Int("port", port))
	go func() {
		//nolint:gosec // by design
		err := http.ListenAndServe(fmt.Sprintf("localhost:%d", port), nil)
		if err != nil {
			log.Error("Profiling server stopped", log.ErrorField(err))
		}
	}()
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}
