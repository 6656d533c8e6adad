package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSV(t *testing.T) {
	assert.Nil(t, CSV(""))
	assert.Equal(t, []string{"a:9092", "b:9092"}, CSV(" a:9092, ,b:9092 "))
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_STR", "value")
	t.Setenv("STOREFRONT_TEST_INT", "42")
	t.Setenv("STOREFRONT_TEST_BAD_INT", "forty-two")

	assert.Equal(t, "value", EnvDefault("STOREFRONT_TEST_STR", "def"))
	assert.Equal(t, "def", EnvDefault("STOREFRONT_TEST_MISSING", "def"))
	assert.Equal(t, 42, EnvIntDefault("STOREFRONT_TEST_INT", 1))
	assert.Equal(t, 1, EnvIntDefault("STOREFRONT_TEST_BAD_INT", 1))
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("JWT_SECRET", "access")
	t.Setenv("REFRESH_SECRET", "refresh")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, []byte("access"), cfg.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "products", cfg.ESIndex)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name:    "missing secrets",
			cfg:     Config{DBDriver: "sqlite"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "postgres without url",
			cfg:     Config{DBDriver: "postgres", JWTSecret: []byte("a"), RefreshSecret: []byte("b")},
			wantErr: "DATABASE_URL",
		},
		{
			name:    "unknown driver",
			cfg:     Config{DBDriver: "mysql", DatabaseURL: "x", JWTSecret: []byte("a"), RefreshSecret: []byte("b")},
			wantErr: "unsupported DB_DRIVER",
		},
		{
			name: "half admin bootstrap",
			cfg: Config{DBDriver: "sqlite", JWTSecret: []byte("a"), RefreshSecret: []byte("b"),
				AdminEmail: "root@example.com"},
			wantErr: "ADMIN_EMAIL and ADMIN_PASSWORD",
		},
		{
			name:    "shared secret",
			cfg:     Config{DBDriver: "sqlite", JWTSecret: []byte("same"), RefreshSecret: []byte("same")},
			wantErr: "must differ",
		},
		{
			name: "ok",
			cfg:  Config{DBDriver: "postgres", DatabaseURL: "postgres://x", JWTSecret: []byte("a"), RefreshSecret: []byte("b")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
