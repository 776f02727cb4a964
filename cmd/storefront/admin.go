package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bazaarlab/storefront/internal/app"
)

var migrateTrack bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		application := app.NewApplication(cfg)
		if err := application.Init(); err != nil {
			return err
		}
		defer application.Release()
		if migrateTrack {
			if err := application.MigrateDB(true); err != nil {
				return err
			}
		}
		fmt.Println("database schema is up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo catalog into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		application := app.NewApplication(cfg)
		if err := application.Init(); err != nil {
			return err
		}
		defer application.Release()

		res, err := application.SeedCatalog(cmd.Context())
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Println("catalog is not empty, nothing seeded")
			return nil
		}
		fmt.Printf("seeded %d categories, %d sub categories, %d brands, %d stocks, %d products, %d services\n",
			res.Categories, res.SubCategories, res.Brands, res.Stocks, res.Products, res.Services)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		shown := *cfg
		shown.Database.Passwd = mask(shown.Database.Passwd)
		shown.Notify.Telegram.Token = mask(shown.Notify.Telegram.Token)
		shown.Notify.Mail.Passwd = mask(shown.Notify.Mail.Passwd)
		out, err := yaml.Marshal(&shown)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "******"
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateTrack, "track", false, "print the executed DDL")
	rootCmd.AddCommand(migrateCmd, seedCmd, configCmd)
}
