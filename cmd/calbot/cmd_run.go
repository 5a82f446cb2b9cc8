package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/calypso-lang/calypso-bot/bootstrap"
	"github.com/calypso-lang/calypso-bot/bot"
	"github.com/calypso-lang/calypso-bot/config"
	"github.com/calypso-lang/calypso-bot/core"
	"github.com/calypso-lang/calypso-bot/discord"
	"github.com/calypso-lang/calypso-bot/logging"
	"github.com/calypso-lang/calypso-bot/pipeline"
	"github.com/calypso-lang/calypso-bot/render"
	"github.com/calypso-lang/calypso-bot/sysf"
)

var watchConfig bool

// errWatchNeedsFile is returned for --watch-config without --config.
var errWatchNeedsFile = errors.New("--watch-config needs an explicit --config file")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to Discord and serve commands",
	Long: `Loads the configuration, connects to the Discord gateway and answers
commands until interrupted or stopped by an owner.

The token and app id come from the config file or the CALBOT_DISCORD_TOKEN
and CALBOT_DISCORD_APPID environment variables.`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func runBot(cmd *cobra.Command, args []string) error {
	if watchConfig && configPath == "" {
		return errWatchNeedsFile
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ValidateDiscord(); err != nil {
		return err
	}

	log, err := botLogger(cmd, cfg)
	if err != nil {
		return err
	}
	logger = log

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sys := core.NewActorSystem(core.WithLogger(log))
	svc, err := render.New(sys, render.WithWidth(cfg.Render.Width), render.WithLogger(log))
	if err != nil {
		return err
	}
	pipe, err := pipeline.New(sysf.Engine{}, svc, log)
	if err != nil {
		return err
	}

	gw, err := discord.New(cfg.Discord, log)
	if err != nil {
		return err
	}
	owners, err := gw.Owners(ctx)
	if err != nil {
		return err
	}

	b, err := bot.New(bot.Env{
		Pipeline:  pipe,
		Transport: gw.Transport(),
		Config:    cfg,
		Owners:    owners,
		Shutdown:  gw.RequestShutdown,
		Logger:    log,
	})
	if err != nil {
		return err
	}
	gw.Attach(ctx, b)

	app := bootstrap.NewApplication(bootstrap.WithLogger(log), bootstrap.WithSignals())
	for _, reg := range []struct {
		svc  bootstrap.Service
		deps []string
	}{
		{bootstrap.NewActorSystemService(sys), nil},
		{svc, []string{"actor-system"}},
		{gw, []string{render.ServiceName}},
	} {
		if err := app.Register(reg.svc.Name(), reg.svc, reg.deps...); err != nil {
			return err
		}
	}

	var cw *config.Watcher
	if watchConfig {
		cw, err = config.NewWatcher(configPath, loader, log)
		if err != nil {
			return err
		}
		defer cw.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return app.Run(gctx)
	})
	g.Go(func() error {
		select {
		case <-gw.Done():
			log.Info("shutdown requested")
			logHealth(gctx, app.LifecycleManager(), log)
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if cw != nil {
		cw.OnConfigChange(func(_, next *config.Config) {
			if err := b.Apply(gctx, next); err != nil {
				log.Warn("failed to apply config", zap.Error(err))
				return
			}
			log.Info("config applied", zap.String("prefix", next.General.Prefix))
		})
		g.Go(func() error { return cw.Run(gctx) })
	}

	return g.Wait()
}

// logHealth logs every service that is not healthy.
func logHealth(ctx context.Context, lm bootstrap.LifecycleManager, log *zap.Logger) {
	health, err := lm.Health(ctx)
	if err != nil {
		log.Warn("health check failed", zap.Error(err))
		return
	}
	for name, status := range health {
		if !status.State.OK() {
			log.Warn("service unhealthy",
				zap.String("service", name),
				zap.String("state", string(status.State)),
				zap.String("message", status.Message))
		}
	}
}

// botLogger rebuilds the logger from cfg unless the flags were given.
func botLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, error) {
	opts := logging.Options{Level: string(cfg.General.Log), Format: cfg.General.LogFormat}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		opts.Level = logLevel
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		opts.Format = logFormat
	}
	log, err := logging.New(opts)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}
	return log, nil
}
