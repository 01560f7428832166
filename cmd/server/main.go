package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"invaders/internal/api"
	"invaders/internal/config"
	"invaders/internal/room"
	"invaders/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	appConfig := config.Load()

	st, err := store.NewFileStore(appConfig.Store.Dir)
	if err != nil {
		log.Fatalf("room store: %v", err)
	}
	log.Printf("room store: %s", appConfig.Store.Dir)

	directory := room.NewDirectory(st)
	server := api.NewServer(directory)

	debugCfg := api.ObservabilityConfig{
		Enabled:    appConfig.Debug.Enabled,
		ListenAddr: appConfig.Debug.ListenAddr,
	}
	if err := api.StartDebugServer(debugCfg); err != nil {
		log.Printf("debug server disabled: %v", err)
	}

	addr := ":" + strconv.Itoa(appConfig.Server.Port)
	go func() {
		if err := server.Start(addr); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready")
	<-quit

	log.Println("shutting down")
	server.Stop()
}
