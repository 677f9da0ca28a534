package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"kikitoby/game"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	clientDir := flag.String("client", "", "Path to client directory (default: ../client)")
	assetDir := flag.String("assets", "", "Path to sprites and backgrounds served at /assets/")
	dbPath := flag.String("db", "kikitoby.db", "SQLite database file")
	tuningPath := flag.String("tuning", "", "YAML file overriding the engine tuning")
	flag.Parse()

	if *clientDir == "" {
		exe, _ := os.Executable()
		*clientDir = filepath.Join(filepath.Dir(exe), "..", "client")
		// Fallback for development
		if _, err := os.Stat(*clientDir); os.IsNotExist(err) {
			*clientDir = "../client"
		}
	}

	var tuning *game.Tuning
	if *tuningPath != "" {
		t, err := game.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("tuning: %v", err)
		}
		tuning = &t
	}

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	analytics := NewAnalytics(db)
	hub := NewHub(db, analytics, tuning)
	go hub.Run()

	mux := SetupRoutes(hub, *clientDir, *assetDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		log.Printf("Serving client files from %s", *clientDir)
		if *assetDir != "" {
			log.Printf("Serving assets from %s at /assets/", *assetDir)
		}
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	hub.Shutdown()
	analytics.Stop()
}
