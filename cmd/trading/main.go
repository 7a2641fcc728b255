package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/orbit-lab/orbit-trading/internal/logger"
	"github.com/orbit-lab/orbit-trading/internal/scheduler"
	"github.com/orbit-lab/orbit-trading/internal/trading/provider"
	"github.com/orbit-lab/orbit-trading/internal/types"
)

// runAction wires the trading provider against the real clock, optionally
// connects to the broker, and runs until interrupted.
func runAction(ctx context.Context, cmd *cli.Command) error {
	cfg := provider.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		loaded, err := provider.LoadConfig(path)
		if err != nil {
			return err
		}

		cfg = loaded
	}

	if symbols := cmd.StringSlice("symbols"); len(symbols) > 0 {
		cfg.Instruments = symbols
	}

	log, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	sched := scheduler.NewReal()

	p := provider.NewTradingProvider(cfg, sched, log)
	p.Start()

	if server := cmd.String("server"); server != "" {
		account, err := p.Connect(types.Credentials{
			Server:   server,
			Login:    cmd.String("login"),
			Password: cmd.String("password"),
		})
		if err != nil {
			return err
		}

		log.Info("Session established",
			zap.Float64("balance", account.Balance),
			zap.String("currency", account.Currency),
		)
	}

	if cmd.Bool("auto") {
		if err := p.StartAutomation(); err != nil {
			return err
		}
	}

	stopStatus := sched.Schedule(30*time.Second, func() {
		log.Info("Status",
			zap.String("connection", string(p.ConnectionStatus())),
			zap.Strings("instruments", p.SelectedInstruments()),
			zap.Int("trades", len(p.Trades())),
			zap.Int("signals", len(p.SignalHistory())),
			zap.Bool("automation", p.AutomationRunning()),
		)
	})
	defer stopStatus()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	p.Close()

	return nil
}

// schemaAction prints the JSON schema of the configuration file.
func schemaAction(ctx context.Context, cmd *cli.Command) error {
	schemaStr, err := provider.GetConfigSchema()
	if err != nil {
		return err
	}

	fmt.Println(schemaStr)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "trading",
		Usage: "Run the trading orchestration core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
			&cli.StringSliceFlag{
				Name:    "symbols",
				Aliases: []string{"y"},
				Usage:   "Instrument symbols to subscribe at startup",
			},
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "Broker trade server to connect to (e.g. MetaQuotes-Demo)",
			},
			&cli.StringFlag{
				Name:    "login",
				Aliases: []string{"l"},
				Usage:   "Broker account login",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "Broker account password",
			},
			&cli.BoolFlag{
				Name:    "auto",
				Aliases: []string{"a"},
				Usage:   "Start automation for the configured strategies",
			},
		},
		Action: runAction,
		Commands: []*cli.Command{
			{
				Name:   "schema",
				Usage:  "Print the JSON schema of the configuration file",
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
