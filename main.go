package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/geolearn/internal/bot"
	"github.com/example/geolearn/internal/catalog"
	"github.com/example/geolearn/internal/config"
	"github.com/example/geolearn/internal/database"
	"github.com/example/geolearn/internal/learning"
	"github.com/example/geolearn/internal/scheduler"
	"github.com/example/geolearn/internal/session"
	"github.com/example/geolearn/internal/storage"
	"github.com/jmoiron/sqlx"
)

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	localDB, err := database.Connect(database.DriverSQLite, cfg.LocalDBPath)
	if err != nil {
		log.Fatalf("Failed to connect to local database: %v", err)
	}
	defer localDB.Close()
	if err := database.InitLocalSchema(localDB); err != nil {
		log.Fatalf("Failed to initialize local database: %v", err)
	}

	var remote storage.RemoteStore
	if cfg.RemoteEnabled() {
		remoteDB, err := connectRemote(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to remote database: %v", err)
		}
		defer remoteDB.Close()
		remote = database.NewRemoteStore(remoteDB)
	} else {
		log.Println("REMOTE_DB_TYPE is not set, running in demo mode with local storage only")
	}

	resources := database.NewResourceRepository(localDB)
	cat := catalog.New(resources)
	if err := cat.Seed(ctx); err != nil {
		log.Fatalf("Failed to seed catalog: %v", err)
	}
	if cfg.CatalogFile != "" {
		importConfig := catalog.DefaultImportConfig()
		importConfig.FilePath = cfg.CatalogFile
		result, err := catalog.Import(ctx, resources, importConfig)
		if err != nil {
			log.Printf("Error importing catalog from %s: %v", cfg.CatalogFile, err)
		} else {
			log.Printf("Imported catalog: %d processed, %d created, %d updated, %d errors",
				result.TotalProcessed, result.Created, result.Updated, len(result.Errors))
			for _, e := range result.Errors {
				log.Printf("Catalog import: %s", e)
			}
		}
	}

	localStorage := database.NewLocalStorageRepository(localDB)
	storeFor := func(device string) storage.KeyValueStore {
		return database.NewLocalStorage(localStorage, device)
	}
	sessions := session.NewProvider(storeFor)
	registry := learning.NewRegistry(storeFor, remote, sessions)
	registry.KnownDevices = localStorage.Namespaces
	tracker := learning.NewReadingTracker(cfg.ReadingThrottle)

	botConfig := bot.DefaultConfig()
	botConfig.PageSize = cfg.PageSize
	b := bot.New(cfg.TelegramToken, bot.Deps{
		Registry: registry,
		Sessions: sessions,
		Catalog:  cat,
		Content:  catalog.NewFetcher(cfg.ContentBaseURL),
		Tracker:  tracker,
	}, botConfig)

	var sched *scheduler.Scheduler
	if cfg.EnableScheduler {
		sched = scheduler.New(registry, tracker, b, cfg.ReadingThrottle, cfg.ReminderTime)
		if err := sched.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		log.Println("Scheduler started")
	}

	done := make(chan struct{})

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v\n", sig)
		cancel()

		if sched != nil {
			sched.Stop()
		} else {
			tracker.Flush()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := b.Stop(shutdownCtx); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}

		close(done)
	}()

	log.Println("Bot started. Press Ctrl+C to stop.")
	go func() {
		if err := b.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Bot error: %v", err)
		}
	}()

	<-done
	log.Println("Bot stopped successfully")
}

func connectRemote(cfg *config.Config) (*sqlx.DB, error) {
	driver, err := database.DriverFor(cfg.RemoteDBType)
	if err != nil {
		return nil, err
	}
	db, err := database.Connect(driver, cfg.RemoteDBDSN)
	if err != nil {
		return nil, err
	}
	if err := database.InitRemoteSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
