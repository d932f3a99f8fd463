package cmd

import (
	"fmt"
	"os"
	"time"

	"craftbridge/internal/auth"
	"craftbridge/internal/config"
	"craftbridge/pkg/sdk"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	Client    *sdk.Client
	BaseURL   string
	ConfigDir string
	Token     string
	Timeout   time.Duration

	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "craftbridge"})
)

var RootCmd = &cobra.Command{
	Use:          "craftbridge",
	Short:        "Control a Minecraft server through the craftbridge daemon",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		Client = client
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConsole()
	},
}

// newClient mints a short-lived operator token from the local config unless
// one was given explicitly.
func newClient() (*sdk.Client, error) {
	dir := ConfigDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultConfigDir(); err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	url := BaseURL
	if url == "" {
		url = cfg.BaseURL()
	}

	token := Token
	if token == "" {
		subject := "cli-" + uuid.New().String()[:8]
		if token, err = auth.IssueToken(cfg.APISecret, subject, auth.RoleOperator, time.Hour); err != nil {
			return nil, fmt.Errorf("error signing token: %w", err)
		}
	}
	return sdk.NewClient(url, token), nil
}

func Execute() {
	RootCmd.PersistentFlags().StringVar(&BaseURL, "url", "", "URL of the craftbridge daemon (default from config)")
	RootCmd.PersistentFlags().StringVar(&ConfigDir, "config-dir", "", "directory holding config.json and the API secret")
	RootCmd.PersistentFlags().StringVar(&Token, "token", os.Getenv("CRAFTBRIDGE_TOKEN"), "API token (minted from the local secret when empty)")
	RootCmd.PersistentFlags().DurationVar(&Timeout, "timeout", 30*time.Second, "timeout for requests other than start and stop")

	if err := RootCmd.Execute(); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
