//go:build e2e

package e2e

import (
	"context"
	"flag"
	"log"
	"os"
	"testing"
)

var testCtx *TestContext

func TestMain(m *testing.M) {
	flag.Parse()

	if os.Getenv("DOCKER_HOST") == "" && os.Getenv("TESTCONTAINERS_DOCKER_SOCKET") == "" {
		log.Println("Using default Docker socket for testcontainers")
	}

	ctx := context.Background()

	log.Println("Starting Postgres container...")
	container, connString, err := setupPostgresE(ctx)
	if err != nil {
		log.Fatalf("Failed to start postgres: %v", err)
	}
	log.Println("Postgres container started")

	log.Println("Starting test server...")
	testCtx, err = startServerE(ctx, connString)
	if err != nil {
		_ = container.Terminate(ctx)
		log.Fatalf("Failed to start server: %v", err)
	}
	testCtx.PostgresContainer = container
	testCtx.ConnString = connString
	log.Println("Test server started at", testCtx.TestServer.URL)

	code := m.Run()

	testCtx.TestServer.Close()
	if err := testCtx.Server.Close(); err != nil {
		log.Printf("Failed to close server: %v", err)
	}
	if err := testCtx.Backend.Close(); err != nil {
		log.Printf("Failed to close backend: %v", err)
	}
	if err := container.Terminate(ctx); err != nil {
		log.Printf("Failed to terminate postgres container: %v", err)
	}

	os.Exit(code)
}
