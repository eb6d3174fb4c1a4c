package health

import (
	"context"
	"errors"
	"testing"
)

func TestCheckAllPassesWhenAllProbesPass(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(ctx context.Context) error { return nil })
	r.Register("classifier", func(ctx context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("expected healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Name != "database" || statuses[1].Name != "classifier" {
		t.Errorf("statuses out of registration order: %+v", statuses)
	}
}

func TestCheckAllReportsFailureDetail(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(ctx context.Context) error {
		return errors.New("connection refused")
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("expected unhealthy")
	}
	if statuses[0].Healthy {
		t.Error("probe should be marked unhealthy")
	}
	if statuses[0].Detail != "connection refused" {
		t.Errorf("detail = %q", statuses[0].Detail)
	}
}

func TestRegisterReplacesProbe(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(ctx context.Context) error { return errors.New("down") })
	r.Register("database", func(ctx context.Context) error { return nil })

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("replacement probe should have run")
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
}

func TestCheckAllEmptyRegistryIsHealthy(t *testing.T) {
	healthy, statuses := NewRegistry().CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected no statuses, got %d", len(statuses))
	}
}
