package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/playcallout/callout/internal/cache"
	"github.com/playcallout/callout/internal/config"
	"github.com/playcallout/callout/internal/game"
	"github.com/playcallout/callout/internal/rules"
	"github.com/playcallout/callout/internal/store"
	"github.com/playcallout/callout/internal/ws"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration error")
	}
	if lvl, perr := logrus.ParseLevel(cfg.LogLevel); perr == nil {
		log.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mirror store.Mirror
	if cfg.PostgresDSN != "" {
		pg, perr := store.NewPostgres(ctx, cfg.PostgresDSN)
		if perr != nil {
			log.WithError(perr).Fatal("postgres mirror init failed")
		}
		defer pg.Close()
		mirror = pg
		log.Info("using postgres mirror")
	} else {
		mirror = store.NewMemory()
		log.Info("using in-memory mirror")
	}

	manager := game.NewManager(mirror, rules.NewLedger(), log)

	if cfg.RedisAddr != "" {
		historian := cache.NewHistorian(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if perr := historian.Ping(pingCtx); perr != nil {
			log.WithError(perr).Warn("redis unreachable, action history disabled")
		} else {
			manager.Historian = historian
			defer historian.Close()
			log.Info("action historian enabled")
		}
		cancel()
	}

	manager.EffectFn = func(eff game.Effect) {
		log.WithFields(logrus.Fields{
			"session": eff.SessionID,
			"type":    eff.Type,
		}).Debug("effect emitted")
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewServer(manager, []byte(cfg.JWTSecret), log))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if serr := srv.Shutdown(shutdownCtx); serr != nil {
			log.WithError(serr).Warn("server shutdown error")
		}
	}()

	log.WithField("addr", cfg.ListenAddr).Info("callout server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server exited")
	}
	manager.Drain()
	log.Info("server stopped")
}
