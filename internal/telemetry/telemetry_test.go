package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	ctx := context.Background()

	// The service mains fatal on a Setup error, so the bootstrap must
	// succeed without a collector reachable; the exporter only dials on
	// export.
	shutdown, err := Setup(ctx, "bookmart-test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Nothing was recorded, so shutdown has nothing to flush.
	assert.NoError(t, shutdown(ctx))
}
