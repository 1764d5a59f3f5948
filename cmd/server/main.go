package main

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Tyrowin/roomcast/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting Roomcast server...")

	// Create configuration
	config := server.NewConfigFromEnv()
	server.SetConfig(config)

	// Wire the core: event bus, registry, chat listener
	events := server.NewEventBus()
	registry := server.NewRegistry(events)
	chat := server.NewChatServer(registry)

	if err := chat.Start(config.ChatAddr); err != nil {
		log.Fatalf("Failed to start chat server: %v", err)
	}

	// Admin control surface
	api := server.NewAdminAPI(registry, chat, events)
	httpServer := server.CreateServer(config.AdminAddr, api.Routes())

	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Admin server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	if err := chat.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, server.ErrServerNotRunning) {
		log.Printf("Chat server shutdown error: %v", err)
	}
	if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("Admin server shutdown error: %v", err)
	}
}
