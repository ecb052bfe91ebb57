package settings

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/util"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
)

func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "shows or changes the driver settings",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := util.SetupLogger()
			return err
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "prints the effective driver settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return show(cmd.OutOrStdout(), util.SettingsStore().Get())
		},
	})
	cmd.AddCommand(newSetCmd())
	return cmd
}

func show(out io.Writer, s config.Settings) error {
	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(&s)
}

// ratingFlags maps the flag names to the rating fields
func ratingFlags(s *config.Settings) map[string]*int {
	return map[string]*int{
		"car-stability":          &s.CarStability,
		"corner-entry-stability": &s.CornerEntryStability,
		"corner-exit-stability":  &s.CornerExitStability,
		"traction":               &s.Traction,
		"braking-stability":      &s.BrakingStability,
	}
}

func newSetCmd() *cobra.Command {
	var values config.Settings
	cmd := &cobra.Command{
		Use:   "set",
		Short: "changes the given driver settings and saves them",
		Long: `Changes the given driver settings and saves them.
Ratings are clamped to 1..10. A running agent picks up the changes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := util.SettingsStore()
			s := store.Get()
			flags := cmd.Flags()
			if flags.Changed("api-url-setting") {
				s.APIURL = values.APIURL
			}
			if flags.Changed("notes") {
				s.DriverNotes = values.DriverNotes
			}
			current := ratingFlags(&s)
			for name, v := range ratingFlags(&values) {
				if flags.Changed(name) {
					*current[name] = *v
				}
			}
			if err := store.Set(s); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "settings saved")
			return show(cmd.OutOrStdout(), store.Get())
		},
	}
	cmd.Flags().StringVar(&values.APIURL, "api-url-setting", "",
		"api url stored in the settings file")
	cmd.Flags().StringVar(&values.DriverNotes, "notes", "", "driver notes sent with each lap")
	for name, v := range ratingFlags(&values) {
		cmd.Flags().IntVar(v, name, config.DefaultRating, "rating 1..10")
	}
	return cmd
}
