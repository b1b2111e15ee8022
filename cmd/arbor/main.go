package main

import (
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present so OPENAI_API_KEY and friends reach the planner.
	_ = godotenv.Load()

	Execute()
}
