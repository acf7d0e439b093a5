package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/courtside/httpapi"
	"pkt.systems/courtside/internal/appconfig"
	"pkt.systems/courtside/internal/authoritymock"
	"pkt.systems/pslog"
)

func newMockAuthorityCmd() *cobra.Command {
	var cfgPath string
	var addr string
	cmd := &cobra.Command{
		Use:   "mock-authority",
		Short: "Run a standalone scoreboard authority for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Authority.MockAddr
			}
			mock, err := newMockServer(cfg, pslog.Ctx(cmd.Context()))
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			go mock.Run(ctx)
			return httpapi.ListenAndServe(ctx, addr, mock.Handler())
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to authority.mock_addr)")
	return cmd
}

func newMockServer(cfg appconfig.Config, logger pslog.Logger) (*authoritymock.Server, error) {
	boardCfg, err := mockConfig(cfg.Console.Catalog)
	if err != nil {
		return nil, err
	}
	return authoritymock.NewServer(authoritymock.NewScoreboard(boardCfg), logger), nil
}

// startMock serves mock on addr in the background. ready closes once the
// listener is bound.
func startMock(ctx context.Context, addr string, mock *authoritymock.Server) (<-chan struct{}, <-chan error) {
	ready := make(chan struct{})
	errCh := make(chan error, 1)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		errCh <- err
		return ready, errCh
	}
	close(ready)
	go mock.Run(ctx)
	go func() {
		if err := httpapi.Serve(ctx, ln, mock.Handler()); err != nil {
			pslog.Ctx(ctx).Error("mock authority failed", "err", err)
			errCh <- err
		}
	}()
	return ready, errCh
}

// mockConfig seeds the mock scoreboard from the console catalog so the
// selectors and the authority agree on identifiers. Game type rules come
// from the built-in presets when the identifier matches one, and default to
// four ten-minute quarters otherwise.
func mockConfig(catalog appconfig.CatalogConfig) (authoritymock.Config, error) {
	defaults := authoritymock.DefaultConfig()
	cfg := authoritymock.Config{}
	for _, opt := range catalog.Teams {
		id, err := catalogID("team", opt)
		if err != nil {
			return authoritymock.Config{}, err
		}
		team := authoritymock.Team{ID: id, Name: opt.Label}
		for _, def := range defaults.Teams {
			if def.ID == id {
				team.ColorPrimary = def.ColorPrimary
				team.ColorSecondary = def.ColorSecondary
			}
		}
		cfg.Teams = append(cfg.Teams, team)
	}
	for _, opt := range catalog.GameTypes {
		id, err := catalogID("game type", opt)
		if err != nil {
			return authoritymock.Config{}, err
		}
		gameType := authoritymock.GameType{ID: id, Name: opt.Label, Quarters: 4, QuarterLength: 10 * time.Minute}
		for _, def := range defaults.GameTypes {
			if def.ID == id {
				gameType.Quarters = def.Quarters
				gameType.QuarterLength = def.QuarterLength
			}
		}
		cfg.GameTypes = append(cfg.GameTypes, gameType)
	}
	return cfg, nil
}

func catalogID(kind string, opt appconfig.CatalogOption) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(opt.Value))
	if err != nil {
		return 0, fmt.Errorf("catalog %s %q: value must be an integer", kind, opt.Value)
	}
	return id, nil
}
