package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bazaarlab/storefront/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront catalog and guest checkout backend",
	Long: `Storefront serves a localized product catalog and a guest checkout
over a JSON API. New orders are announced to staff through Telegram and mail.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "storefront.yml", "config file")
}

// loadConfig reads the config file named by -c and checks it.
func loadConfig() (*config.AppConfig, error) {
	cfg := config.LoadConfig(configFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
