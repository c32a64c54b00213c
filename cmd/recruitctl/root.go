package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"recruitai/internal/client"
	"recruitai/internal/localstore"
	"recruitai/internal/logger"
)

const app = "recruitctl"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:           app,
		Short:         "recruitctl submits resumes to RecruitAI and browses the scored candidates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// session is what recruitctl keeps under localstore.KeyUser.
type session struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Company   string `json:"company"`
}

// env bundles what every subcommand needs.
type env struct {
	api   *client.Client
	state *localstore.Store
	log   *zap.Logger
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recruitctl.yaml in the current directory)")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "RecruitAI API base URL")
	rootCmd.PersistentFlags().String("state", "", "local state database (default ~/.recruitai/state.db)")
	rootCmd.PersistentFlags().Duration("timeout", 6*time.Minute, "HTTP timeout for a single request")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	for _, name := range []string{"server", "state", "timeout", "debug", "json"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
	viper.SetEnvPrefix("RECRUITAI")
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Println(errorStyle.Render("reading config: " + err.Error()))
		}
	}
}

// newEnv opens the local state and builds an API client carrying the saved
// session, if any.
func newEnv(ctx context.Context) (*env, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	path := viper.GetString("state")
	if path == "" {
		if path, err = localstore.DefaultPath(); err != nil {
			return nil, err
		}
	}
	state, err := localstore.Open(path)
	if err != nil {
		return nil, err
	}

	api := client.New(viper.GetString("server"), viper.GetDuration("timeout"))
	var s session
	switch err := state.GetJSON(ctx, localstore.KeyUser, &s); {
	case err == nil:
		api.SetToken(s.Token)
	case !errors.Is(err, localstore.ErrNotFound):
		log.Warn("saved session unreadable", zap.Error(err))
	}
	return &env{api: api, state: state, log: log}, nil
}

func (e *env) Close() {
	e.state.Close()
	e.log.Sync()
}
