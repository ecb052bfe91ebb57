package replay

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/util"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host/natshost"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/replay"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/session"
)

const (
	targetLocal = "local"
	targetNats  = "nats"
)

var (
	target    string
	startTest bool
	settle    string
)

func NewReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <file>",
		Short: "replays recorded ticks (json lines, - for stdin)",
		Long: `Replays recorded ticks at a fixed rate.

With --target=local the ticks are fed into an in-process setup test session
which talks to the configured api. With --target=nats the ticks are published
to the tick subject of a running agent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&config.ReplayRate, "rate", replay.DefaultRate,
		"ticks per second (0 means: go as fast as possible)")
	cmd.Flags().StringVar(&target, "target", targetLocal,
		"where ticks are sent to (local, nats)")
	cmd.Flags().BoolVar(&startTest, "start", true,
		"start a setup test before replaying (local target only)")
	cmd.Flags().StringVar(&settle, "settle", "15s",
		"max time to wait for a pending request after the last tick (local target only)")
	return cmd
}

func openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}

func runReplay(parent context.Context, name string, out io.Writer) error {
	if err := replay.ValidateRate(config.ReplayRate); err != nil {
		return err
	}
	if _, err := util.SetupLogger(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()
	in, err := openInput(name)
	if err != nil {
		return err
	}
	defer in.Close()

	switch target {
	case targetNats:
		return replayToNats(ctx, in, out)
	case targetLocal:
		return replayLocal(ctx, in, out)
	default:
		return fmt.Errorf("unknown target %q", target)
	}
}

func replayToNats(ctx context.Context, in io.Reader, out io.Writer) error {
	if config.NatsURL == "" {
		return fmt.Errorf("--nats-url is required for target nats")
	}
	conn, err := nats.Connect(config.NatsURL, nats.Name("auriga-replay"))
	if err != nil {
		return err
	}
	defer conn.Close()
	prefix := config.NatsSubjectPrefix
	if prefix == "" {
		prefix = natshost.DefaultPrefix
	}
	stats, err := replay.New(replay.NatsSink(conn, prefix+".tick"),
		replay.WithRate(config.ReplayRate)).Run(ctx, in)
	if flushErr := conn.Flush(); err == nil {
		err = flushErr
	}
	printStats(out, stats)
	return err
}

func replayLocal(ctx context.Context, in io.Reader, out io.Writer) error {
	controller := session.NewController(
		session.WithAPI(util.NewAPIClient()),
		session.WithSettings(util.SettingsStore().Get),
		session.WithGameName(""),
		session.WithPrintTicks(config.PrintTicks),
	)
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go controller.Run(runCtx)

	statusCh := controller.Subscribe()
	defer controller.Unsubscribe(statusCh)
	go func() {
		for st := range statusCh {
			if st.Message != "" {
				fmt.Fprintf(out, "[%s] %s\n", st.State, st.Message)
			}
		}
	}()

	if startTest {
		if err := controller.StartTest(ctx); err != nil {
			return err
		}
		if err := waitSettled(ctx, controller); err != nil {
			return err
		}
	}
	stats, err := replay.New(replay.TickerSink(controller.Tick),
		replay.WithRate(config.ReplayRate)).Run(ctx, in)
	if err != nil {
		return err
	}
	if err := controller.Flush(ctx); err != nil {
		return err
	}
	if err := waitSettled(ctx, controller); err != nil {
		return err
	}
	printStats(out, stats)
	st := controller.Status()
	fmt.Fprintf(out, "final state %s, setup %d\n", st.State, st.SetupID)
	return nil
}

// waitSettled waits until no api call is pending
func waitSettled(ctx context.Context, c *session.Controller) error {
	timeout := time.Now().Add(15 * time.Second)
	if d, err := time.ParseDuration(settle); err == nil {
		timeout = time.Now().Add(d)
	}
	for time.Now().Before(timeout) {
		switch c.Status().State {
		case model.StateRequesting, model.StateReporting:
		default:
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	log.Warn("session did not settle", log.String("state", string(c.Status().State)))
	return nil
}

func printStats(out io.Writer, s replay.Stats) {
	fmt.Fprintf(out, "sent %d ticks, skipped %d lines, rejected %d ticks\n",
		s.Sent, s.Skipped, s.Rejected)
}
