package dash

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/client/web"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/util"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/dashboard"
)

var _ dashboard.ListInvalidator = (*web.Client)(nil)

var (
	filter dashboard.Filter
	page   int
	browse bool
)

//nolint:funlen // by design
func NewDashCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "optimization dashboard",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := util.SetupLogger()
			return err
		},
	}
	cmd.PersistentFlags().StringVar(&config.PollInterval, "poll-interval", "30s",
		"refresh interval of the watch command")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "cars",
			Short: "lists the cars with setups",
			RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, _ []string) error {
				d.ShowCars(ctx)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "tracks <car>",
			Short: "lists the tracks with setups for a car",
			Args:  cobra.ExactArgs(1),
			RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, args []string) error {
				d.ShowTracks(ctx, args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "setup <id>",
			Short: "shows the details of a setup",
			Args:  cobra.ExactArgs(1),
			RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, args []string) error {
				id, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid setup id %q", args[0])
				}
				d.ShowSetup(ctx, id)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "shows the optimization status and recent setups",
			RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, _ []string) error {
				d.Landing(ctx)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "watch",
			Short: "shows the optimization status until interrupted",
			RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, _ []string) error {
				d.Watch(ctx)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "stop",
			Short: "stops the running optimization",
			RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, _ []string) error {
				return d.StopOptimization(ctx)
			}),
		},
		newSetupsCmd(),
		newStartCmd(),
	)
	return cmd
}

func newSetupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setups",
		Short: "lists the setups and performance of a car/track combination",
		RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, _ []string) error {
			if err := d.ShowSetups(ctx, filter); err != nil {
				return err
			}
			if page > 1 {
				if err := d.GotoPage(ctx, page); err != nil {
					return err
				}
			}
			if browse {
				fmt.Fprintln(os.Stderr, "n: next page, p: previous page, <num>: page, r: refresh, q: quit")
				d.Browse(ctx, os.Stdin)
			}
			return nil
		}),
	}
	addFilterFlags(cmd)
	cmd.Flags().IntVar(&page, "page", 1, "page to show")
	cmd.Flags().BoolVar(&browse, "browse", false, "read page navigation commands from stdin")
	return cmd
}

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "starts an optimization for a car/track combination",
		RunE: withDashboard(func(ctx context.Context, d *dashboard.Dashboard, _ []string) error {
			return d.StartOptimization(ctx, filter)
		}),
	}
	addFilterFlags(cmd)
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&filter.CarID, "car", "", "car id")
	cmd.Flags().StringVar(&filter.TrackID, "track", "", "track id")
}

type dashFunc func(ctx context.Context, d *dashboard.Dashboard, args []string) error

func withDashboard(fn dashFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cli, err := util.NewWebClient()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		d := dashboard.New(cli, cmd.OutOrStdout(),
			dashboard.WithPollInterval(util.PollInterval()))
		return fn(ctx, d, args)
	}
}
