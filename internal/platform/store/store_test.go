package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"discordsearch/internal/platform/config"
	"discordsearch/internal/platform/testkit"
)

func TestOpen_Disabled_LeavesPGNil(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.PG != nil {
		t.Fatalf("PG should be nil when disabled, got %T", s.PG)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	var nilStore *Store
	if err := nilStore.Close(); err != nil {
		t.Fatalf("nil Close: %v", err)
	}
}

func TestOpen_BadURL(t *testing.T) {
	_, err := Open(context.Background(), Config{PG: PGConfig{Enabled: true, URL: "://bad"}})
	if err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestOpen_PingRetriesThenFails(t *testing.T) {
	testkit.Serial(t)
	var slept []time.Duration
	testkit.Swap(t, &sleep, func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	})

	cfg := Config{PG: PGConfig{
		Enabled:        true,
		URL:            "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1",
		ConnectRetries: 3,
		PingTimeout:    time.Second,
	}}
	_, err := Open(context.Background(), cfg)
	if err == nil {
		t.Fatalf("expected ping failure")
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []time.Duration{150 * time.Millisecond, 300 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("slept %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("slept %v, want %v", slept, want)
		}
	}
}

func TestFromConfig(t *testing.T) {
	if got := FromConfig(config.New(), "discord-search", false); got.PG.Enabled || got.AppName != "discord-search" {
		t.Fatalf("disabled config = %+v", got)
	}

	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://localhost/discord")
	t.Setenv("SERVICE_PGSQL_MAX_CONNS", "2")
	got := FromConfig(config.New(), "discord-search", true)
	if !got.PG.Enabled || got.PG.URL != "postgres://localhost/discord" || got.PG.MaxConns != 2 {
		t.Fatalf("enabled config = %+v", got.PG)
	}
}
