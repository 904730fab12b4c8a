package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"food-order-bot/api"
	"food-order-bot/bot"
	"food-order-bot/config"
	"food-order-bot/db"
	"food-order-bot/lang"
	"food-order-bot/services"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:           "food-order-bot",
		Short:         "Telegram client for the food ordering service",
		SilenceUsage:  true,
	}
	root.PersistentFlags().String("api-url", "", "backend base URL (API_URL)")
	root.PersistentFlags().String("storage", "", "client storage driver: sqlite or postgres (STORAGE_DRIVER)")
	_ = v.BindPFlag("api_url", root.PersistentFlags().Lookup("api-url"))
	_ = v.BindPFlag("storage_driver", root.PersistentFlags().Lookup("storage"))

	botCmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), v)
		},
	}
	root.RunE = botCmd.RunE

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the client storage tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), v)
		},
	}

	var category string
	menuCmd := &cobra.Command{
		Use:   "menu",
		Short: "Print the backend menu",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd.Context(), v, category)
		},
	}
	menuCmd.Flags().StringVar(&category, "category", "all", "show only this category")

	root.AddCommand(botCmd, migrateCmd, menuCmd)
	return root
}

func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// openStorage opens the configured client storage. The caller closes it.
func openStorage(ctx context.Context, cfg *config.Config, migrate, verbose bool) (db.Storage, error) {
	store, err := db.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if migrate {
		if err := db.ApplyMigrations(ctx, store, verbose); err != nil {
			store.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return store, nil
}

func runBot(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	if cfg.Telegram.Token == "" {
		return fmt.Errorf("TOKEN not set")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, cfg.Storage.AutoMigrate, false)
	if err != nil {
		return err
	}
	defer store.Close()

	client := api.New(cfg.API.BaseURL, cfg.API.Timeout)
	b, err := bot.New(cfg, store, client)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	log.Printf("Bot started. API: %s, storage: %s", cfg.API.BaseURL, cfg.Storage.Driver)
	b.Start(ctx)
	log.Println("Bot stopped.")
	return nil
}

func runMigrate(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	store, err := openStorage(ctx, cfg, true, true)
	if err != nil {
		return err
	}
	store.Close()
	return nil
}

func runMenu(ctx context.Context, v *viper.Viper, category string) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}
	client := api.New(cfg.API.BaseURL, cfg.API.Timeout)
	catalog := services.NewCatalog(services.NewMenuLoader(client))
	if err := catalog.Reload(ctx); err != nil {
		return fmt.Errorf("menu: %w", err)
	}
	catalog.SetFilter(category)

	l := lang.Normalize(cfg.Lang)
	for _, it := range catalog.Visible() {
		fmt.Printf("%3d  %s %-24s %-10s %s\n", it.ID, services.CategoryEmoji(it.Category), it.Name, it.Category,
			lang.T(l, "currency", it.Price.StringFixed(2)))
	}
	return nil
}
