package main

import (
	"context"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/forcetrack/readiness/modules"
	"github.com/forcetrack/readiness/modules/readiness/services"
	"github.com/forcetrack/readiness/pkg/application"
	"github.com/forcetrack/readiness/pkg/composables"
	"github.com/forcetrack/readiness/pkg/configuration"
	"github.com/forcetrack/readiness/pkg/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	baseCtx := composables.WithPool(context.Background(), pool)
	if err := applySchemas(baseCtx, app, pool); err != nil {
		log.Fatalf("failed to apply schemas: %v", err)
	}

	hierarchy, ok := app.Service(&services.HierarchyService{}).(*services.HierarchyService)
	if !ok {
		log.Fatal("hierarchy service is not registered")
	}
	if err := hierarchy.Load(baseCtx); err != nil {
		log.Fatalf("failed to materialize unit hierarchy: %v", err)
	}

	router := mux.NewRouter()
	router.Use(requestLogger(logger))
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if conf.Prometheus.Enabled {
		router.Handle(conf.Prometheus.Path, promhttp.Handler())
	}

	server := &http.Server{
		Addr:         conf.SocketAddress,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},
	}

	go func() {
		logger.Infof("readiness core listening on %s", conf.SocketAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	configuration.Use().Unload()
}

func applySchemas(ctx context.Context, app application.Application, pool *pgxpool.Pool) error {
	for _, schemaFS := range app.Schemas() {
		err := fs.WalkDir(schemaFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".sql") {
				return nil
			}
			sql, err := fs.ReadFile(schemaFS, path)
			if err != nil {
				return err
			}
			_, err = pool.Exec(ctx, string(sql))
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
