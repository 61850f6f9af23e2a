package main

import (
	"github.com/joho/godotenv"

	"pricefinder/internal/cli"
)

func main() {
	// API credentials live in a local .env file in development.
	_ = godotenv.Load()

	cli.Execute()
}
