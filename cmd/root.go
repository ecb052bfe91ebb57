/*
Copyright 2025 Auriga AI
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/client/api"
	agentCmd "github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/agent"
	dashCmd "github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/dash"
	journalCmd "github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/journal"
	migrateCmd "github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/migrate"
	replayCmd "github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/replay"
	settingsCmd "github.com/aurigaai/auriga-setup-agent-go/pkg/cmd/settings"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/config"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/host/natshost"
	"github.com/aurigaai/auriga-setup-agent-go/version"
)

const envPrefix = "AURIGA"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "auriga",
	Short:   "Setup test agent and dashboard for the Auriga setup optimizer",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.auriga.yml)")

	rootCmd.PersistentFlags().StringVar(&config.SettingsFile, "settings", "",
		"driver settings file (default is $HOME/.auriga/settings.yml)")
	rootCmd.PersistentFlags().StringVar(&config.APIURL, "api-url", "",
		"optimization api url, overrides the url of the settings file")
	rootCmd.PersistentFlags().StringVar(&config.WebURL, "web-url", "",
		"dashboard web api url (default is the api url)")
	rootCmd.PersistentFlags().StringVar(&config.RequestTimeout, "request-timeout",
		api.DefaultTimeout.String(),
		"timeout for requests against the api")
	rootCmd.PersistentFlags().StringVar(&config.DB, "db", "",
		"Connection string for the journal database (empty: no journal)")
	rootCmd.PersistentFlags().StringVar(&config.NatsURL, "nats-url", "",
		"URL of the NATS server (empty: no NATS surface)")
	rootCmd.PersistentFlags().StringVar(&config.NatsSubjectPrefix, "nats-prefix",
		natshost.DefaultPrefix,
		"prefix of all NATS subjects")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"restricts log output by logger name (zapfilter rules, e.g. '*:session,api')")
	rootCmd.PersistentFlags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	rootCmd.PersistentFlags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data (stdout: print to stdout)")

	// add commands here
	rootCmd.AddCommand(agentCmd.NewAgentCmd())
	rootCmd.AddCommand(replayCmd.NewReplayCmd())
	rootCmd.AddCommand(dashCmd.NewDashCmd())
	rootCmd.AddCommand(settingsCmd.NewSettingsCmd())
	rootCmd.AddCommand(migrateCmd.NewMigrateCmd())
	rootCmd.AddCommand(journalCmd.NewJournalCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".auriga" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".auriga")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindCommandTree(rootCmd, viper.GetViper())
}

// bindCommandTree binds the flags of cmd and all of its sub commands
func bindCommandTree(cmd *cobra.Command, v *viper.Viper) {
	bindFlags(cmd, v)
	for _, sub := range cmd.Commands() {
		bindCommandTree(sub, v)
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --nats-url to AURIGA_NATS_URL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
