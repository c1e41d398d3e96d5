package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/tuannm99/pinedb/internal"
	"github.com/tuannm99/pinedb/internal/engine"
	"github.com/tuannm99/pinedb/internal/storage"
)

func main() {
	dataDir := flag.String("data-dir", "./data", "Working directory for database files")
	configPath := flag.String("config", "", "Optional YAML config file")
	poolSize := flag.Int("pool-size", 0, "Number of buffer frames (0 = default)")
	flag.Parse()

	workDir := *dataDir
	blockSize := storage.DefaultBlockSize
	frames := *poolSize

	if *configPath != "" {
		cfg, err := internal.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Storage.Workdir != "" {
			workDir = cfg.Storage.Workdir
		}
		if cfg.Storage.BlockSize > 0 {
			blockSize = cfg.Storage.BlockSize
		}
		if cfg.Storage.PoolSize > 0 {
			frames = cfg.Storage.PoolSize
		}
	}

	if err := os.MkdirAll(workDir, storage.FileMode0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	eng, err := engine.Open(workDir, blockSize, frames)
	if err != nil {
		log.Fatalf("Failed to open engine: %v", err)
	}
	defer eng.Close()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("Shutting down...")
		eng.Close()
		os.Exit(0)
	}()

	fmt.Printf("PineDB started with data directory: %s\n", workDir)
	// TODO: attach the transaction layer once it grows a server surface

	select {}
}
