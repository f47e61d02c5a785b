package services_test

import (
	"context"
	"testing"

	"sbsconv/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithShot(ctx, "sh010")
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithComponent(ctx, "conversion")

	if name, ok := services.ShotFromContext(ctx); !ok || name != "sh010" {
		t.Fatalf("unexpected shot: %v %v", name, ok)
	}
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if c, ok := services.ComponentFromContext(ctx); !ok || c != "conversion" {
		t.Fatalf("unexpected component: %v %v", c, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithShot(ctx, "")
	ctx = services.WithRunID(ctx, "")
	if _, ok := services.ShotFromContext(ctx); ok {
		t.Fatal("expected no shot value")
	}
	if _, ok := services.RunIDFromContext(ctx); ok {
		t.Fatal("expected no run id value")
	}
}
