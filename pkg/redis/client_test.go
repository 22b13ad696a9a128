package redis

import (
	"context"
	"crypto/tls"
	"net"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/naciremadream81/permitpro-v1/internal/config"
)

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	defer mr.Close()

	host, port, err := net.SplitHostPort(mr.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort() error = %v", err)
	}

	client, err := NewClient(&config.Config{RedisHost: host, RedisPort: port})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Errorf("stored value = %q, want v", got)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}
	host, port, _ := net.SplitHostPort(mr.Addr())
	mr.Close()

	client, err := NewClient(&config.Config{RedisHost: host, RedisPort: port})
	if err == nil {
		client.Close()
		t.Fatal("NewClient() expected error for closed server")
	}
}

func TestNewOptions_TLS(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantTLS bool
	}{
		{"no password", config.Config{RedisHost: "cache", RedisPort: "6379"}, false},
		{"password outside production", config.Config{RedisHost: "cache", RedisPort: "6379", RedisPassword: "secret", Environment: "development"}, true},
		{"password in production", config.Config{RedisHost: "cache", RedisPort: "6379", RedisPassword: "secret", Environment: "production"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := newOptions(&tt.cfg)
			if opts.Addr != "cache:6379" {
				t.Errorf("Addr = %q, want cache:6379", opts.Addr)
			}
			if got := opts.TLSConfig != nil; got != tt.wantTLS {
				t.Errorf("TLS enabled = %v, want %v", got, tt.wantTLS)
			}
			if tt.wantTLS && opts.TLSConfig.MinVersion != tls.VersionTLS12 {
				t.Errorf("MinVersion = %x, want TLS 1.2", opts.TLSConfig.MinVersion)
			}
		})
	}
}
