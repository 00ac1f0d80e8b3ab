package main

import (
	"testing"

	"github.com/joho/godotenv"
	"go.uber.org/goleak"
)

// TestMain runs before all tests and loads .env if available
func TestMain(m *testing.M) {
	// Try to load .env file - ignore error if it doesn't exist (CI environment)
	_ = godotenv.Load()

	goleak.VerifyTestMain(m)
}
