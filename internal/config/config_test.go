package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PLAYLEDGER_POSTGRES_USER", "postgres")
	t.Setenv("PLAYLEDGER_POSTGRES_PASSWORD", "secret")
	t.Setenv("PLAYLEDGER_POSTGRES_HOST", "db")
	t.Setenv("PLAYLEDGER_POSTGRES_DB", "playledger")
	t.Setenv("PLAYLEDGER_REDIS_HOST", "cache")
	t.Setenv("PLAYLEDGER_ADMIN_ID", "admin")
	t.Setenv("PLAYLEDGER_BUS_PROVIDER", "nats")
	t.Setenv("PLAYLEDGER_NATS_HOST", "nats")
	t.Setenv("PLAYLEDGER_NATS_PORT", "4222")
	t.Setenv("PLAYLEDGER_JWT_SECRET", "s3cret")
}

func TestNewDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "postgres://postgres:secret@db:5432/playledger?sslmode=disable", cfg.DSN())
	require.Equal(t, "cache:6379", cfg.RedisAddr())
	require.Equal(t, "nats://nats:4222", cfg.BusAddr())
	require.Equal(t, "nats", cfg.WorkerProvider)
	require.Equal(t, ":50051", cfg.GRPCListenAddr())
	require.Equal(t, uint64(10), cfg.PlayFee)
	require.Equal(t, uint64(1_000_000), cfg.InitialSupply)
	require.Equal(t, "playledger:record-store", cfg.StoreID)
	require.Equal(t, 1024, cfg.BusBufferSize)

	_, err = cfg.ApiAddr()
	require.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing admin", map[string]string{"PLAYLEDGER_ADMIN_ID": ""}},
		{"store equals admin", map[string]string{"PLAYLEDGER_STORE_ID": "admin"}},
		{"unknown bus", map[string]string{"PLAYLEDGER_BUS_PROVIDER": "kafka"}},
		{"grpc bus without address", map[string]string{"PLAYLEDGER_BUS_PROVIDER": "grpc"}},
		{"missing jwt secret", map[string]string{"PLAYLEDGER_JWT_SECRET": ""}},
		{"api without secret", map[string]string{"PLAYLEDGER_API_ENABLED": "true", "PLAYLEDGER_API_PORT": "8080", "PLAYLEDGER_JWT_SECRET": ""}},
		{"grpc bus without bus secret", map[string]string{"PLAYLEDGER_BUS_PROVIDER": "grpc", "PLAYLEDGER_GRPC_HOST": "peer", "PLAYLEDGER_GRPC_PORT": "50051"}},
		{"grpc worker without bus secret", map[string]string{"PLAYLEDGER_WORKER_PROVIDER": "grpc"}},
		{"missing redis", map[string]string{"PLAYLEDGER_REDIS_HOST": ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := New()
			require.Error(t, err)
		})
	}
}

func TestApiAddr(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PLAYLEDGER_API_ENABLED", "true")
	t.Setenv("PLAYLEDGER_API_PORT", "8080")
	t.Setenv("PLAYLEDGER_PLAY_FEE", "25")
	t.Setenv("PLAYLEDGER_BUS_BUFFER_SIZE", "oops")

	cfg, err := New()
	require.NoError(t, err)
	addr, err := cfg.ApiAddr()
	require.NoError(t, err)
	require.Equal(t, ":8080", addr)
	require.Equal(t, uint64(25), cfg.PlayFee)
	require.Equal(t, 1024, cfg.BusBufferSize)
}

func TestGrpcBusWithSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("PLAYLEDGER_BUS_PROVIDER", "grpc")
	t.Setenv("PLAYLEDGER_GRPC_HOST", "peer")
	t.Setenv("PLAYLEDGER_GRPC_PORT", "50051")
	t.Setenv("PLAYLEDGER_BUS_SECRET", "bus")

	cfg, err := New()
	require.NoError(t, err)
	require.Equal(t, "peer:50051", cfg.BusAddr())
	require.Equal(t, "grpc", cfg.WorkerProvider)
	require.Equal(t, "bus", cfg.BusSecret)
}
