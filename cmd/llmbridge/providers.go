package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"llmbridge/internal/core/registry"
	"llmbridge/internal/pkg/logger"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured providers and models",
	RunE: func(cmd *cobra.Command, args []string) error {
		zl, err := logger.New("error")
		if err != nil {
			return err
		}
		defer zl.Sync()

		reg, err := registry.Load(viper.GetString("llm.providers_dir"), logger.Wrap(zl))
		if err != nil {
			return err
		}

		for _, p := range reg.Providers() {
			caps := make([]string, 0, len(p.Capabilities))
			for name, on := range p.Capabilities {
				if on {
					caps = append(caps, name)
				}
			}
			fmt.Printf("%s (%s) auth=%s capabilities=%v\n", p.ID, p.Label, p.Auth.Mode, caps)
			for _, m := range p.Models {
				pm := registry.ProviderModel{ProviderID: p.ID, ModelID: m.ID, Label: m.Label}
				fmt.Printf("  %s  %s\n", pm.FullID(), registry.ModelLabel(pm, p))
			}
		}
		return nil
	},
}
