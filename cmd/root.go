package cmd

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/spf13/cobra"

	"github.com/ottlabs/apptokens"
	"github.com/ottlabs/apptokens/pkg/config"
	"github.com/ottlabs/apptokens/pkg/platform"
)

var BuildVersion = "dev"

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:          "apptokens",
	Short:        "Manage platform app tokens",
	Long:         "CLI for creating, listing, updating and deleting app tokens on the media platform, and for exchanging a token for a session.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the JSON configuration file. Can also be set via APPTOKENS_CONFIG.")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging on the error stream.")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of the apptokens CLI",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", BuildVersion)
		},
	})
}

func Execute() error {
	return rootCmd.Execute()
}

func resolveConfigPath() string {
	if configPath != config.DefaultPath {
		return configPath
	}
	if env := os.Getenv("APPTOKENS_CONFIG"); env != "" {
		return env
	}
	return configPath
}

func commandLogger(cmd *cobra.Command) logr.Logger {
	if !debug {
		return logr.Discard()
	}
	return funcr.New(func(prefix, args string) {
		fmt.Fprintln(cmd.ErrOrStderr(), prefix, args)
	}, funcr.Options{Verbosity: 2})
}

// newLifecycleClient performs the per-invocation bootstrap: configuration,
// platform client, admin session. Configuration problems surface before the
// first remote call.
func newLifecycleClient(cmd *cobra.Command) (*apptokens.Client, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}

	logger := commandLogger(cmd)
	platformClient, err := platform.NewClient(platform.Config{
		ServiceURL:      cfg.ServiceURL,
		PartnerID:       cfg.PartnerID,
		AdminSecret:     cfg.AdminSecret,
		UserID:          cfg.UserID,
		SessionExpiry:   cfg.SessionExpiry,
		AdminPrivileges: cfg.AdminPrivileges,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}

	if err := platformClient.StartAdminSession(cmd.Context()); err != nil {
		return nil, err
	}

	return apptokens.New(apptokens.Config{
		Platform: platformClient,
		Logger:   logger,
	})
}
