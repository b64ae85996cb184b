package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dtroode/breathesense-server/internal/mocks"
	"github.com/dtroode/breathesense-server/internal/testutil"
)

func TestHealth_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		service    string
		pingErr    error
		expectPing bool
		wantStatus healthpb.HealthCheckResponse_ServingStatus
		wantCode   codes.Code
	}{
		{name: "server serving", expectPing: true, wantStatus: healthpb.HealthCheckResponse_SERVING},
		{name: "account serving", service: ServiceName, expectPing: true, wantStatus: healthpb.HealthCheckResponse_SERVING},
		{name: "store down", expectPing: true, pingErr: errors.New("refused"), wantStatus: healthpb.HealthCheckResponse_NOT_SERVING},
		{name: "unknown service", service: "other.Service", wantCode: codes.NotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := mocks.NewUserStore(t)
			if tt.expectPing {
				store.On("Ping", mock.Anything).Return(tt.pingErr)
			}

			h := New(store, testutil.MakeNoopLogger())
			resp, err := h.Check(context.Background(), &healthpb.HealthCheckRequest{Service: tt.service})

			if tt.wantCode != codes.OK {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, status.Code(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.GetStatus())
		})
	}
}
