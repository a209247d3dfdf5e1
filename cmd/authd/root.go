package main

import (
	"context"
	"errors"
	"os"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-token-auth/config"
	"github.com/goliatone/go-token-auth/internal/server"
	"github.com/goliatone/go-token-auth/repository"
)

const (
	LogLevelKey  = "log.level"
	LogFormatKey = "log.format"
)

// cli carries state shared by every command
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        *config.BaseConfig
	logger     *logrus.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "authd",
		Short: "Bearer token authentication service",
		Long: `authd issues HS256 bearer tokens at login, verifies them on every request
and revokes them on logout before they expire.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return c.init(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "",
		"Configuration file (default is ./authd.yaml)")

	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	_ = c.v.BindPFlag(LogLevelKey, root.PersistentFlags().Lookup("log-level"))

	root.PersistentFlags().String("log-format", "text", "Log format (text, json)")
	_ = c.v.BindPFlag(LogFormatKey, root.PersistentFlags().Lookup("log-format"))

	config.BindEnv(c.v)

	root.AddCommand(
		newServeCmd(c),
		newMigrateCmd(c),
		newRevocationsCmd(c),
		newTokenCmd(c),
	)

	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if c.configFile != "" {
		c.v.SetConfigFile(c.configFile)
	} else {
		c.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			c.v.AddConfigPath(home)
		}
		c.v.SetConfigType("yaml")
		c.v.SetConfigName("authd")
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundError) {
			return err
		}
	}

	cfg, err := config.Load(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := server.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	c.logger = logger

	if used := c.v.ConfigFileUsed(); used != "" {
		logger.Debugf("using config file: %s", used)
	}

	return nil
}

func (c *cli) openDB(ctx context.Context) (*persistence.Client, error) {
	return repository.Open(ctx, c.cfg.Persistence)
}
