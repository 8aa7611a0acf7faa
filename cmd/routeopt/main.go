package main

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/joho/godotenv"

	"parcelroute/internal/cli"
)

func main() {
	// .env is optional; the process environment always wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
