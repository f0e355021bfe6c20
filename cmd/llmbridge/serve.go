package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"llmbridge/internal/core/registry"
	"llmbridge/internal/core/router"
	"llmbridge/internal/pkg/logger"
	"llmbridge/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the llmbridge server",
	Long:  `Load the provider registry and start the HTTP facade.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		zl, err := logger.New(viper.GetString("log.level"))
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		defer zl.Sync()
		log := logger.Wrap(zl)

		reg, err := registry.Load(viper.GetString("llm.providers_dir"), log)
		if err != nil {
			return err
		}

		timeout := time.Duration(viper.GetInt("llm.timeout_sec")) * time.Second
		rt, err := router.New(reg, router.NewMemoryStore(), viper.GetString("llm.default_provider"), timeout, log)
		if err != nil {
			return err
		}
		exec := router.NewExecutor(rt, viper.GetInt("llm.retries"), log)

		addr := fmt.Sprintf("%s:%d", viper.GetString("server.host"), viper.GetInt("server.port"))
		srv := server.New(addr, server.Deps{
			Registry:       reg,
			Router:         rt,
			Executor:       exec,
			Log:            log,
			MaxAnswerChars: viper.GetInt("llm.max_answer_chars"),
		})
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Server port")
	serveCmd.Flags().StringP("host", "H", "0.0.0.0", "Server host")

	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
}
