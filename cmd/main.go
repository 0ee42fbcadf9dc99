// Command kronevakt watches the balance of DNB Kronekort prepaid cards and
// notifies users on Telegram when it changes.
//
// Usage:
//
//	kronevakt --config config.yaml
//	kronevakt --setup
//	kronevakt (uses CLI flags and defaults)
//
// Required environment variables:
//
//	TELEGRAM_BOT_TOKEN (a .env file in the working directory is honored)
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"path/filepath"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kronevakt/kronevakt/config"
	"github.com/kronevakt/kronevakt/internal/bot"
	"github.com/kronevakt/kronevakt/internal/services/fetcher"
	"github.com/kronevakt/kronevakt/internal/services/monitor"
	"github.com/kronevakt/kronevakt/internal/services/notifier"
	"github.com/kronevakt/kronevakt/internal/setup"
	"github.com/kronevakt/kronevakt/internal/storage/registrations"
	"github.com/kronevakt/kronevakt/internal/storage/snapshots"
	"github.com/kronevakt/kronevakt/internal/web"
)

func main() {
	flag.Parse()

	if *config.Setup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("kronevakt exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapStore, err := snapshots.NewWALStore(filepath.Join(cfg.DataDir, "snapshots"))
	if err != nil {
		return errors.Wrap(err, "open snapshot store")
	}
	defer snapStore.Close()

	regStore, err := registrations.NewWALStore(filepath.Join(cfg.DataDir, "registrations"))
	if err != nil {
		return errors.Wrap(err, "open registration store")
	}
	defer regStore.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return errors.Wrap(err, "authorize telegram bot")
	}

	dnb := fetcher.NewDNBFetcher(cfg.BalanceURL, cfg.FetchTimeout, logger.Named("fetcher"))
	tg := notifier.NewTelegramNotifier(api, logger.Named("notifier"))

	mon := monitor.New(dnb, tg, snapStore, regStore,
		cfg.CheckInterval, cfg.FetchTimeout, logger.Named("monitor"))

	tgBot := bot.New(api, mon, regStore, logger.Named("bot"))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return mon.Run(ctx)
	})

	g.Go(func() error {
		return tgBot.Run(ctx)
	})

	if cfg.WebAddr != "" {
		g.Go(func() error {
			logger.Info("dashboard listening", zap.String("addr", cfg.WebAddr))
			return web.NewServer(cfg.WebAddr, snapStore).Start(ctx)
		})
	}

	logger.Info("kronevakt started",
		zap.Duration("check_interval", cfg.CheckInterval),
		zap.Duration("fetch_timeout", cfg.FetchTimeout))

	return g.Wait()
}
