package main

import (
	"context"
	"errors"
	"log"
	"log/slog"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"

	"ratiosplit/internal/build"
	"ratiosplit/internal/config"
	"ratiosplit/internal/dispatch"
	"ratiosplit/internal/ipc"
	"ratiosplit/pkg/slogext"
	"ratiosplit/pkg/sutureext"
)

type Options struct {
	Config string `doc:"config file" default:"~/.config/i3/ratiosplit.yaml"`
}

func main() {
	godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		OnServe(hooks, func(ctx context.Context) error {
			configFilePath, err := config.ExpandHome(options.Config)
			if err != nil {
				return err
			}

			cfg, err := config.Load(configFilePath)
			if err != nil {
				return err
			}

			if err := initLogger(cfg); err != nil {
				return err
			}

			slog.Info("Starting ratiosplit", "version", build.Current.Version, "ratio", cfg.Ratio)

			socketPath, err := ipc.SocketPath()
			if err != nil {
				return err
			}

			slog.Info("Connecting to window manager", "socket", socketPath)
			conn, err := ipc.Connect(socketPath)
			if err != nil {
				return err
			}
			defer conn.Close()

			// Unblock a pending event read on shutdown.
			go func() {
				<-ctx.Done()
				conn.Close()
			}()

			super := sutureext.NewSimple("ratiosplit")
			super.Add(dispatch.New(conn, cfg))

			return super.Serve(ctx)
		})
	})

	cli.Root().Version = build.Current.Version

	cli.Run()
}

func initLogger(cfg config.Config) error {
	consoleLevel, err := slogext.ParseLevel(cfg.LogConsoleLevel)
	if err != nil {
		return err
	}
	fileLevel, err := slogext.ParseLevel(cfg.LogFileLevel)
	if err != nil {
		return err
	}
	logFile, err := config.ExpandHome(cfg.LogFile)
	if err != nil {
		return err
	}

	slogext.Init(consoleLevel, fileLevel, logFile)
	return nil
}

func OnServe(hooks humacli.Hooks, serveFn func(ctx context.Context) error) {
	stopC := make(chan struct{})
	hooks.OnStart(func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		errC := make(chan error, 1)

		go func() { errC <- serveFn(ctx) }()

		select {
		case <-stopC:
			cancel()
		case err := <-errC:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal(err)
			}
			return
		}

		<-errC
		<-stopC
	})
	hooks.OnStop(func() {
		stopC <- struct{}{}
		stopC <- struct{}{}
	})
}
