package infrastructure

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Server is anything the App runs until shutdown.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type App struct {
	servers []Server
}

func NewApp(servers []Server) *App {
	return &App{servers: servers}
}

func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range a.servers {
		s := srv
		g.Go(func() error {
			return s.Start(ctx)
		})
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range a.servers {
		if err := srv.Stop(stopCtx); err != nil {
			slog.Error("app: failed to stop server", "error", err)
		}
	}

	return g.Wait()
}
