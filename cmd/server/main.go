package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/oydokon/webshop/internal/api"
	"github.com/oydokon/webshop/internal/chat"
	"github.com/oydokon/webshop/internal/config"
	"github.com/oydokon/webshop/internal/fonts"
	"github.com/oydokon/webshop/internal/geo"
	"github.com/oydokon/webshop/internal/media"
	"github.com/oydokon/webshop/internal/printer"
	"github.com/oydokon/webshop/internal/receipt"
	"github.com/oydokon/webshop/internal/store"
)

// Version is set during build via ldflags
var Version = "dev"

func main() {
	configPath := flag.String("config", "webshop.toml", "path to config file")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "webshop",
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("loading config", "err", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Fatal("opening store", "path", cfg.Store.Path, "err", err)
	}
	defer st.Close()

	reg, err := fonts.New("GoRegular", goregular.TTF)
	if err != nil {
		logger.Fatal("loading bundled font", "err", err)
	}
	if cfg.Fonts.Dir != "" {
		if loaded := reg.LoadDir(cfg.Fonts.Dir); len(loaded) > 0 {
			logger.Info("fonts loaded", "dir", cfg.Fonts.Dir, "fonts", loaded)
		}
	}

	med, err := media.NewStore(cfg.Media.Dir, logger)
	if err != nil {
		logger.Fatal("preparing media store", "dir", cfg.Media.Dir, "err", err)
	}

	var queue *printer.Queue
	if cfg.Printer.Host != "" {
		sender := printer.NewNetworkSender(cfg.Printer.Host, cfg.Printer.Port)
		queue = printer.NewQueue(sender, cfg.Printer.MaxRetries, logger)
		defer queue.Stop()
		logger.Info("thermal printing enabled", "printer", cfg.Printer.Host)
	}

	var advisor *chat.Advisor
	if cfg.Chat.URL != "" {
		client := chat.NewClient(cfg.Chat.URL, cfg.Chat.Model, logger)
		advisor = chat.NewAdvisor(client, api.StoreContext(st), logger)
	}

	server := api.NewServer(api.Deps{
		Store:           st,
		Receipts:        receipt.NewGenerator(st, reg, logger),
		Queue:           queue,
		Media:           med,
		Advisor:         advisor,
		Geo:             geo.NewClient(""),
		SessionSecret:   cfg.Server.SessionSecret,
		Logger:          logger,
		ReceiptFont:     cfg.Fonts.Default,
		ReceiptFontSize: cfg.Fonts.Size,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", cfg.Addr(), "version", Version)
		errCh <- server.Run(cfg.Addr())
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Fatal("server error", "err", err)
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig)
	}
}
