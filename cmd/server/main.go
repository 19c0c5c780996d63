package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"idlecraft.ai/internal/config"
	"idlecraft.ai/internal/i18n"
	"idlecraft.ai/internal/persistence/blobstore"
	persistlog "idlecraft.ai/internal/persistence/log"
	"idlecraft.ai/internal/persistence/save"
	"idlecraft.ai/internal/sim/catalogs"
	"idlecraft.ai/internal/sim/clock"
	"idlecraft.ai/internal/sim/game"
	"idlecraft.ai/internal/sim/tuning"
	"idlecraft.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	envCfg, err := config.ParseEnv()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}
	locales, err := i18n.LoadDir(filepath.Join(*configDir, "locales"))
	if err != nil {
		logger.Fatalf("load locales: %v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}
	store, err := blobstore.Open(envCfg.BlobBackend, *dataDir)
	if err != nil {
		logger.Fatalf("open %s store: %v", envCfg.BlobBackend, err)
	}
	defer store.Close()

	settings, player := loadSaves(store, logger)

	g, err := game.New(game.Config{
		Tuning:   tune,
		Catalogs: cats,
		Locales:  locales,
		Clock:    clock.RealClock{},
		Logger:   log.New(os.Stdout, "[game] ", log.LstdFlags|log.Lmicroseconds),
		Player:   player,
		Settings: settings,
	})
	if err != nil {
		logger.Fatalf("game: %v", err)
	}
	if player != nil {
		logger.Printf("resumed saved player (%d slots, %d actions)", len(player.Inventory), len(player.Actions))
	}

	writer := save.NewWriter(store, 8, logger)
	g.SetSaveSink(writer)

	if envCfg.JournalEvents {
		journal := persistlog.NewEventLogger(*dataDir)
		defer journal.Close()
		g.SetJournal(journal)
	}

	ctx, cancel := signalContext()
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writer.Run(ctx)
	}()
	gameDone := make(chan struct{})
	go func() {
		defer close(gameDone)
		if err := g.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("game stopped: %v", err)
		}
	}()

	router := newRouter(routes{
		stats:       g.Stats(),
		saves:       writer,
		locales:     locales,
		views:       ws.NewServer(g, envCfg.AllowRemoteView, logger).Handler(),
		enablePprof: envCfg.EnablePprofHTTP,
		log:         logger,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (store=%s)", *addr, envCfg.BlobBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	<-gameDone
	<-writerDone
	finalSave(store, g, logger)
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// loadSaves reads the stored settings and player. A blob that fails to decode
// is logged and replaced by defaults; the player is nil when none was saved.
// An undecodable player blob is copied to PlayerCorrupt before the fresh player
// can overwrite it, and startup stops if the copy cannot be written.
func loadSaves(store blobstore.Store, logger *log.Logger) (save.Settings, *save.Player) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	settings := save.DefaultSettings()
	if b, ok, err := store.LoadBlob(ctx, blobstore.Settings); err != nil {
		logger.Printf("load settings: %v", err)
	} else if ok {
		if s, err := save.DecodeSettings(b); err != nil {
			logger.Printf("decode settings: %v; using defaults", err)
		} else {
			settings = s
		}
	}

	b, ok, err := store.LoadBlob(ctx, blobstore.Player)
	if err != nil {
		logger.Fatalf("load player: %v", err)
	}
	if !ok {
		return settings, nil
	}
	p, err := save.DecodePlayer(b)
	if err != nil {
		if err := store.SaveBlob(ctx, blobstore.PlayerCorrupt, b); err != nil {
			logger.Fatalf("keep corrupt player: %v", err)
		}
		logger.Printf("decode player: %v; kept as %q, starting fresh", err, blobstore.PlayerCorrupt)
		return settings, nil
	}
	return settings, &p
}

// finalSave runs with the loop stopped.
func finalSave(store blobstore.Store, g *game.Game, logger *log.Logger) {
	blobs, err := g.Blobs()
	if err != nil {
		logger.Printf("final save: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, b := range blobs {
		if err := store.SaveBlob(ctx, b.Key, b.Data); err != nil {
			logger.Printf("final save %s: %v", b.Key, err)
		}
	}
	logger.Printf("saved on shutdown")
}
