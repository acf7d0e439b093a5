package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/courtside"
	"pkt.systems/courtside/core"
	"pkt.systems/courtside/httpapi"
	"pkt.systems/courtside/internal/appconfig"
	"pkt.systems/courtside/internal/dom"
	"pkt.systems/courtside/schema"
	"pkt.systems/courtside/sshserver"
	"pkt.systems/pslog"
)

const streamHistory = 256

func newServeCmd() *cobra.Command {
	var cfgPath string
	var variant string
	var noHTTP bool
	var noSSH bool
	var withMock bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the operator console servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if variant != "" {
				cfg.Console.Variant = variant
			}
			serverCfg, err := toServerConfig(cfg)
			if err != nil {
				return err
			}
			var opts []courtside.ServerOption
			if !noHTTP {
				opts = append(opts, courtside.WithHTTP())
			}
			if !noSSH {
				opts = append(opts, courtside.WithSSH())
			}
			if len(opts) == 0 {
				return errors.New("nothing to serve: both --no-http and --no-ssh given")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if withMock {
				if cfg.Authority.Transport != appconfig.TransportWebSocket {
					return fmt.Errorf("--mock needs the %s transport, got %q", appconfig.TransportWebSocket, cfg.Authority.Transport)
				}
				mock, err := newMockServer(cfg, logger)
				if err != nil {
					return err
				}
				ready, mockErr := startMock(ctx, cfg.Authority.MockAddr, mock)
				select {
				case <-ready:
				case err := <-mockErr:
					return fmt.Errorf("mock authority: %w", err)
				}
			}

			server, err := courtside.New(serverCfg, courtside.ServerDeps{Logger: logger}, opts...)
			if err != nil {
				return err
			}
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&variant, "variant", "", "console variant (panel or dashboard)")
	cmd.Flags().BoolVar(&noHTTP, "no-http", false, "disable the HTTP API")
	cmd.Flags().BoolVar(&noSSH, "no-ssh", false, "disable the SSH console")
	cmd.Flags().BoolVar(&withMock, "mock", false, "run an in-process mock authority on authority.mock_addr")
	return cmd
}

func toServerConfig(cfg appconfig.Config) (courtside.ServerConfig, error) {
	variant, err := schema.NormalizeVariant(cfg.Console.Variant)
	if err != nil {
		return courtside.ServerConfig{}, fmt.Errorf("console.variant %q: %w", cfg.Console.Variant, err)
	}
	return courtside.ServerConfig{
		Authority: cfg.Authority,
		Console: courtside.ConsoleConfig{
			Variant: variant,
			Notices: core.NoticeTimings{
				ShowDelay: cfg.Console.ToastShow,
				Visible:   cfg.Console.ToastVisible,
				Fade:      cfg.Console.ToastFade,
			},
			Catalog: toCatalog(cfg.Console.Catalog),
		},
		HTTP: httpapi.Config{
			Addr:           cfg.HTTP.Addr,
			BasePath:       cfg.HTTP.BasePath,
			AllowedOrigins: cfg.HTTP.AllowedOrigins,
			HistorySize:    streamHistory,
		},
		SSH: sshserver.Config{
			Addr:              cfg.SSH.Addr,
			HostKeyPath:       cfg.SSH.HostKeyPath,
			KeepaliveInterval: cfg.SSH.KeepaliveInterval,
			RenderInterval:    cfg.SSH.RenderInterval,
		},
		Operators: cfg.Operators,
	}, nil
}

func toCatalog(cfg appconfig.CatalogConfig) dom.Catalog {
	return dom.Catalog{
		Teams:             toOptions(cfg.Teams),
		GameTypes:         toOptions(cfg.GameTypes),
		OperatorTemplates: toOptions(cfg.OperatorTemplates),
		DisplayTemplates:  toOptions(cfg.DisplayTemplates),
	}
}

func toOptions(values []appconfig.CatalogOption) []core.Option {
	if len(values) == 0 {
		return nil
	}
	out := make([]core.Option, 0, len(values))
	for _, value := range values {
		out = append(out, core.Option{Value: value.Value, Label: value.Label})
	}
	return out
}
