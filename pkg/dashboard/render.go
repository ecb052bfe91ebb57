package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/aarondl/opt/null"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// errorRow is rendered in place of data which could not be fetched
func errorRow(w io.Writer, what string, err error) {
	fmt.Fprintf(w, "! error loading %s: %v\n", what, err)
}

func firstLapTime(s *model.Setup) null.Val[float64] {
	if len(s.TelemetryResults) == 0 {
		return null.Val[float64]{}
	}
	return s.TelemetryResults[0].LapTime
}

func renderSetups(w io.Writer, page *model.SetupPage, p Pagination) {
	if len(page.Setups) == 0 {
		fmt.Fprintln(w, "no setups found")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tGENERATED\tSOURCE\tSTATUS\tLAP TIME\tSCORE")
	for i := range page.Setups {
		s := &page.Setups[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, FormatDate(s.GenerationTime), s.Source, s.Status,
			FormatLapTime(firstLapTime(s)), FormatScore(s.Score))
	}
	tw.Flush()
	if !p.Hidden() {
		fmt.Fprintf(w, "page %d/%d  %s\n", p.Current, p.TotalPages, p.String())
	}
}

func renderRecentSetups(w io.Writer, page *model.SetupPage) {
	if len(page.Setups) == 0 {
		fmt.Fprintln(w, "no setups found")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tCAR\tTRACK\tGENERATED\tSTATUS\tSCORE")
	for i := range page.Setups {
		s := &page.Setups[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.CarID, s.TrackID, FormatDate(s.GenerationTime), s.Status,
			FormatScore(s.Score))
	}
	tw.Flush()
}

func renderPerformance(w io.Writer, perf *model.PerformanceSeries) {
	if len(perf.SetupIDs) == 0 {
		fmt.Fprintln(w, "no performance data")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SETUP\tLAP TIME\tSCORE")
	for i, id := range perf.SetupIDs {
		lap, score := null.Val[float64]{}, null.Val[float64]{}
		if i < len(perf.LapTimes) {
			lap = null.From(perf.LapTimes[i])
		}
		if i < len(perf.Scores) {
			score = null.From(perf.Scores[i])
		}
		fmt.Fprintf(tw, "#%d\t%s\t%s\n", id, FormatLapTime(lap), FormatScore(score))
	}
	tw.Flush()
}

func renderStatus(w io.Writer, st *model.OptimizationStatus) {
	if !st.IsActive {
		fmt.Fprintln(w, "no optimization running")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "optimization running")
	fmt.Fprintf(tw, "  car:\t%s\n", st.CarID)
	fmt.Fprintf(tw, "  track:\t%s\n", st.TrackID)
	fmt.Fprintf(tw, "  started:\t%s\n", FormatDate(st.StartTime))
	fmt.Fprintf(tw, "  tested:\t%d\n", st.TrialsCompleted)
	fmt.Fprintf(tw, "  pending:\t%d\n", st.TrialsPending)
	fmt.Fprintf(tw, "  best score:\t%s\n", FormatScore(st.BestScore))
	tw.Flush()
}

func renderControls(w io.Writer, c Controls) {
	state := func(enabled bool) string {
		if enabled {
			return "enabled"
		}
		return "disabled"
	}
	fmt.Fprintf(w, "controls: start %s, stop %s\n", state(c.StartEnabled), state(c.StopEnabled))
}

//nolint:funlen // plain rendering
func renderSetupDetails(w io.Writer, s *model.Setup) {
	tw := newTable(w)
	fmt.Fprintf(tw, "setup #%d\n", s.ID)
	fmt.Fprintf(tw, "  car:\t%s\n", s.CarID)
	fmt.Fprintf(tw, "  track:\t%s\n", s.TrackID)
	fmt.Fprintf(tw, "  generated:\t%s\n", FormatDate(s.GenerationTime))
	fmt.Fprintf(tw, "  status:\t%s\n", s.Status)
	fmt.Fprintf(tw, "  source:\t%s\n", s.Source)
	fmt.Fprintf(tw, "  score:\t%s\n", FormatScore(s.Score))
	tw.Flush()

	fmt.Fprintln(w)
	if len(s.TelemetryResults) == 0 {
		fmt.Fprintln(w, "no performance data")
	} else {
		t := &s.TelemetryResults[0]
		tw = newTable(w)
		fmt.Fprintf(tw, "lap time:\t%s\n", FormatLapTime(t.LapTime))
		for _, r := range []struct{ label, key string }{
			{"car stability", "car_stability"},
			{"corner entry stability", "corner_entry_stability"},
			{"corner exit stability", "corner_exit_stability"},
			{"traction", "traction"},
			{"braking stability", "braking_stability"},
		} {
			fmt.Fprintf(tw, "%s:\t%s\n", r.label, FormatRating(t.TelemetryData, r.key))
		}
		if t.WeatherConditions != nil {
			fmt.Fprintf(tw, "weather:\ttrack %s, air %s\n",
				FormatTemp(t.WeatherConditions, "track_temp"),
				FormatTemp(t.WeatherConditions, "air_temp"))
		} else {
			fmt.Fprintf(tw, "weather:\t%s\n", Missing)
		}
		tw.Flush()
	}

	fmt.Fprintln(w)
	if len(s.SetupParameters) == 0 {
		fmt.Fprintln(w, "no parameters")
	} else {
		tw = newTable(w)
		fmt.Fprintln(tw, "PARAMETER\tVALUE\tUNIT")
		for _, row := range ParameterRows(s.SetupParameters) {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", row.Name, row.Value, row.Unit)
		}
		tw.Flush()
	}

	fmt.Fprintln(w)
	if len(s.TelemetryResults) > 0 && s.TelemetryResults[0].DriverNotes != "" {
		fmt.Fprintf(w, "driver notes: %s\n", s.TelemetryResults[0].DriverNotes)
	} else {
		fmt.Fprintln(w, "no driver notes")
	}
}

func renderList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		fmt.Fprintf(w, "no %s found\n", title)
		return
	}
	for i, it := range items {
		fmt.Fprintf(w, "%s %s\n", strconv.Itoa(i+1)+")", it)
	}
}
