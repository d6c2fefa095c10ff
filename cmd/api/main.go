package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/auth"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/httpapi"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/obs"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/store/pg"
	"github.com/Beaudoin0zach/benefits-navigator-sub001/internal/token"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("BNAV_COMMIT"))

	signingSecret := os.Getenv("BNAV_SIGNING_SECRET")
	links, err := token.NewService([]byte(signingSecret))
	if err != nil {
		log.Fatalf("signed links: %v (set BNAV_SIGNING_SECRET)", err)
	}

	var sessions *auth.Service
	if sessionSecret := os.Getenv("BNAV_SESSION_SECRET"); sessionSecret != "" {
		sessions, err = auth.NewService([]byte(sessionSecret))
		if err != nil {
			log.Fatalf("sessions: %v", err)
		}
	} else {
		log.Fatal("missing BNAV_SESSION_SECRET")
	}

	var store *pg.Store
	if dsn := os.Getenv("BNAV_PG_DSN"); dsn != "" {
		store, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
	} else {
		log.Fatal("missing BNAV_PG_DSN")
	}

	api := httpapi.New(httpapi.Config{
		Links:     links,
		Sessions:  sessions,
		Documents: store,
		Ready:     httpapi.ReadyProbe{DB: store.DB()},
		Version:   version,
	})

	handler := httpapi.RateLimit(api.Handler(), 20, 10)
	handler = httpapi.MaxBodyBytes(handler, 1<<20)

	addr := os.Getenv("BNAV_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting benefits-navigator-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
