package store

import (
	"context"
	"os"
	"testing"
)

// TestMongoStore requires a running MongoDB server.
// Set the MONGODB_URI environment variable to run it.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set, skipping MongoDB store tests")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, &MongoConfig{URI: uri, Database: "kgpgpt_test"})
	if err != nil {
		t.Skipf("Failed to connect to MongoDB: %v", err)
	}
	defer s.Close(ctx)
	if err := s.drop(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	exerciseStore(t, s)
}
