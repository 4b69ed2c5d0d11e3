package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/openvoip/voicemailstack/config"
	"github.com/openvoip/voicemailstack/internal/logger"
	"github.com/openvoip/voicemailstack/server"
	"github.com/openvoip/voicemailstack/services/voipms"
)

func main() {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	command := "server"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "server":
		runServer(cfg)
	case "check":
		runCheck(cfg)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		fmt.Println("Usage: voicemailstack [server|check]")
		fmt.Println("  server  start the sync engine, state publisher and audio proxy (default)")
		fmt.Println("  check   validate provider credentials and exit")
		os.Exit(1)
	}
}

func runServer(cfg *config.Config) {
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func runCheck(cfg *config.Config) {
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	client := voipms.NewClient(cfg.VoipmsConfig, appLogger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.CheckCredentials(ctx); err != nil {
		appLogger.Errorf("Credential check failed: %v", err)
		os.Exit(1)
	}
	appLogger.Info("Credentials OK")
}
