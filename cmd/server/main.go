package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/auction-backend/internal/catalog"
	"github.com/DoyleJ11/auction-backend/internal/config"
	"github.com/DoyleJ11/auction-backend/internal/engine"
	"github.com/DoyleJ11/auction-backend/internal/httpapi"
	"github.com/DoyleJ11/auction-backend/internal/lobby"
	"github.com/DoyleJ11/auction-backend/internal/report"
	"github.com/DoyleJ11/auction-backend/internal/store"
	"github.com/DoyleJ11/auction-backend/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log, err := newLogger(cfg)
	if err != nil {
		zap.NewExample().Fatal("build logger", zap.Error(err))
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	res, err := catalog.LoadFile(cfg.CatalogPath)
	if err != nil {
		return err
	}
	for _, w := range multierr.Errors(res.Warnings) {
		log.Warn("catalog row dropped", zap.Error(w))
	}
	if len(res.Items) < cfg.MinCatalogSize {
		log.Warn("catalog smaller than expected",
			zap.Int("items", len(res.Items)),
			zap.Int("expected", cfg.MinCatalogSize))
	}

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	rules := cfg.AuctionRules()
	auction, err := openAuction(ctx, st, res.Items, rules, log)
	if err != nil {
		return err
	}

	opts := []lobby.Option{lobby.WithLogger(log.Named("lobby"))}
	if cfg.ExportFile != "" {
		opts = append(opts, lobby.WithExporter(report.NewFile(cfg.ExportFile)))
	}
	lb := lobby.NewLobby(ctx, auction, st, opts...)

	var wsOpts ws.Options
	if !cfg.IsProduction() {
		wsOpts.OriginPatterns = []string{"localhost:*", "127.0.0.1:*"}
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(lb, log.Named("http"), wsOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		lb.Send(shutdownCtx, lobby.Shutdown{})
		select {
		case <-lb.Done():
		case <-shutdownCtx.Done():
			log.Warn("lobby did not stop in time")
		}
		return err
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, keeping auction state in memory")
		return store.NewMemory(), nil
	}
	pg, err := store.OpenPostgres(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}
	log.Info("connected to postgres")
	return pg, nil
}

// openAuction resumes the saved auction when it fits the configuration and
// starts a fresh one otherwise.
func openAuction(ctx context.Context, st store.Store, items []catalog.Item, rules engine.Rules, log *zap.Logger) (*engine.Auction, error) {
	saved, ok, err := st.Load(ctx)
	if err != nil {
		log.Warn("load saved auction", zap.Error(err))
	}
	if ok {
		a, err := engine.Resume(saved, items, rules)
		if err == nil {
			log.Info("resumed auction", zap.String("phase", string(saved.Phase)), zap.Int("index", saved.Index))
			return a, nil
		}
		log.Warn("saved auction ignored", zap.Error(err))
	}

	a, err := engine.New(items, rules)
	if err != nil {
		return nil, err
	}
	if err := st.Save(ctx, a.State()); err != nil {
		log.Warn("persist new auction", zap.Error(err))
	}
	log.Info("started new auction", zap.Int("items", len(items)), zap.Int("teams", rules.TeamCount))
	return a, nil
}
