package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"llmbridge/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "llmbridge",
	Short: "Declarative LLM provider bridge",
	Long:  `llmbridge routes chat messages to LLM backends described declaratively, without backend-specific code.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { config.Init(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(providersCmd)
}
