package journal

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/spf13/cobra"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/util"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/dashboard"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/db/postgres"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/journal"
)

var (
	limit   int
	setupID int
	before  string
)

func NewJournalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "inspects the local journal of lap submissions",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := util.SetupLogger(); err != nil {
				return err
			}
			if config.DB == "" {
				return fmt.Errorf("--db is required")
			}
			return nil
		},
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "lists the latest submission attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withJournal(cmd.Context(), func(conn journal.Querier) error {
				return listEntries(cmd.Context(), conn, cmd.OutOrStdout())
			})
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries")
	list.Flags().IntVar(&setupID, "setup", 0,
		"list all attempts of this setup, oldest first (ignores --limit)")

	prune := &cobra.Command{
		Use:   "prune",
		Short: "deletes old submission attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := parseCutoff(before, time.Now())
			if err != nil {
				return err
			}
			return withJournal(cmd.Context(), func(conn journal.Querier) error {
				return pruneEntries(cmd.Context(), conn, cutoff, cmd.OutOrStdout())
			})
		},
	}
	prune.Flags().StringVar(&before, "before", "720h",
		"delete entries older than this age (e.g. 168h) or date (2006-01-02)")

	cmd.AddCommand(list, prune)
	return cmd
}

func withJournal(ctx context.Context, fn func(conn journal.Querier) error) error {
	pool, err := postgres.InitWithURL(ctx, config.DB)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(pool)
}

func listEntries(ctx context.Context, conn journal.Querier, out io.Writer) error {
	var entries []*journal.Entry
	var err error
	if setupID > 0 {
		entries, err = journal.LoadBySetup(ctx, conn, setupID)
	} else {
		entries, err = journal.LoadRecent(ctx, conn, limit)
	}
	if err != nil {
		return err
	}
	renderEntries(out, entries)
	return nil
}

func pruneEntries(
	ctx context.Context,
	conn journal.Querier,
	cutoff time.Time,
	out io.Writer,
) error {
	n, err := journal.DeleteBefore(ctx, conn, cutoff)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "deleted %d entries older than %s\n",
		n, cutoff.Local().Format(dashboard.DateLayout))
	return nil
}

// parseCutoff accepts an age relative to now or a local date
func parseCutoff(arg string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(arg); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("negative age %q", arg)
		}
		return now.Add(-d), nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, arg, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --before %q: want an age (168h) or a date (2006-01-02)", arg)
}

func renderEntries(out io.Writer, entries []*journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "no entries")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSETUP\tCAR\tTRACK\tLAP TIME\tOUTCOME\tSCORE\tERROR")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.RecordStamp.Local().Format(dashboard.DateLayout),
			e.SetupID, e.CarID, e.TrackID,
			dashboard.FormatLapTime(nullFloat(e.LapTime)),
			e.Outcome, dashboard.FormatScore(e.Score), e.Error)
	}
	tw.Flush()
}

func nullFloat(v float64) null.Val[float64] {
	return null.From(v)
}
