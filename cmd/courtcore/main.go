package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/ratneshs230/Digital-Courtroom-sub001/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration")
	envFile := flag.String("env", ".env", "optional dotenv file loaded before the configuration")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	svc, err := service.NewService(context.Background(), *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create service: %v\n", err)
		os.Exit(1)
	}

	if err := svc.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped with error: %v\n", err)
		os.Exit(1)
	}
}
