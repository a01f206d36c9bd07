package telemetry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/sharepointsync/internal/infrastructure/telemetry"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     telemetry.ProfilerConfig
		wantErr string
	}{
		{
			name:    "missing server address",
			cfg:     telemetry.ProfilerConfig{Enabled: true, ApplicationName: "sharepoint-sync"},
			wantErr: "server address is required",
		},
		{
			name:    "missing application name",
			cfg:     telemetry.ProfilerConfig{Enabled: true, ServerAddress: "http://pyroscope:4040"},
			wantErr: "application name is required",
		},
		{
			name: "unknown profile type",
			cfg: telemetry.ProfilerConfig{
				Enabled:         true,
				ServerAddress:   "http://pyroscope:4040",
				ApplicationName: "sharepoint-sync",
				ProfileTypes:    []string{"cpu", "heap"},
			},
			wantErr: `unknown profile type "heap"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := telemetry.NewProfiler(tt.cfg, zap.NewNop())
			require.Error(t, err)
			assert.Nil(t, p)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewProfiler_StartAndStop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         true,
		ServerAddress:   srv.URL,
		ApplicationName: "sharepoint-sync-test",
		ProfileTypes:    []string{"goroutines"},
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, p.Enabled())

	require.NoError(t, p.Stop())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Stop())
}

func TestParseProfileTypes(t *testing.T) {
	t.Run("empty selects defaults", func(t *testing.T) {
		types, err := telemetry.ParseProfileTypes(nil)
		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		}, types)
	})

	t.Run("names are case and space insensitive", func(t *testing.T) {
		types, err := telemetry.ParseProfileTypes([]string{" CPU", "mutex_duration ", "Block_Count"})
		require.NoError(t, err)
		assert.Equal(t, []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
		}, types)
	})
}

func TestProviders_EnableSpanProfilesWithoutTracing(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), telemetry.Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, p.EnableSpanProfiles())
}
