package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/agustinboza/CuralisPatientMobile/internal/config"
	"github.com/agustinboza/CuralisPatientMobile/internal/devserver"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("curalis-devd starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s port=%s", cfg.Env, cfg.DevServerPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := devserver.NewStore()
	seed, err := devserver.Seed(store, 3)
	if err != nil {
		log.Fatalf("seed error: %v", err)
	}
	log.Printf("seeded demo patient email=%s password=%s", seed.Patient.Email, seed.PatientPassword)
	for _, d := range seed.Doctors {
		log.Printf("seeded doctor id=%s name=%q specialty=%q", d.ID, d.Name, d.Specialty)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.DevServerPort,
		Handler: devserver.New(store).Handler(),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	log.Printf("listening on :%s", cfg.DevServerPort)

	<-rootCtx.Done()

	log.Println("shutting down curalis-devd")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
