package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	oshttp "net/http"
	"os"
	"os/signal"
	"supportdesk/internal/api"
	"supportdesk/internal/commands"
	"supportdesk/internal/config"
	"supportdesk/internal/desk"
	"supportdesk/internal/http"
	"supportdesk/internal/ws"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	consoleWidth  = 80
	threadHeight  = 12
	shutdownGrace = 5 * time.Second
)

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("supportdesk", flag.ContinueOnError)
	list := flags.Bool("list", false, "Print the conversation list once and exit")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*list)
	if err != nil {
		return err
	}

	if *list {
		return commands.ListInbox(ctx, cfg, stdout)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	header := oshttp.Header{}
	if cfg.APIToken != "" {
		header.Set("Authorization", "Bearer "+cfg.APIToken)
	}
	transport := ws.NewClient(ws.Config{
		URL:          cfg.WSURL,
		Header:       header,
		PingInterval: cfg.PingInterval,
		ReconnectMin: cfg.ReconnectMin,
		ReconnectMax: cfg.ReconnectMax,
	}, logger)

	view := desk.New(desk.Config{
		PollInterval:   cfg.OrderPollInterval,
		ThreadHeight:   threadHeight,
		MaxReplyLength: cfg.MaxReplyLength,
	},
		api.NewClient(cfg.APIURL, cfg.APIToken, cfg.RequestTimeout),
		transport,
		commands.NewConsole(stdout, consoleWidth, threadHeight),
		logger,
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return view.Run(gCtx)
	})

	// The console ends the process when the operator quits or input closes.
	g.Go(func() error {
		err := commands.RunConsole(gCtx, stdin, os.Stderr, view)
		if err == nil || errors.Is(err, commands.ErrQuit) {
			return context.Canceled
		}
		return err
	})

	if cfg.StatusAddr != "" {
		statusServer := http.NewStatusServer(view, cfg.StatusAddr)

		g.Go(func() error {
			return statusServer.Start()
		})

		g.Go(func() error {
			<-gCtx.Done()
			log.Println("Shutting down status endpoint...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()

			if err := statusServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Status endpoint shutdown error: %v", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env file: %v", err)
	}

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
