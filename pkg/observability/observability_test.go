package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moralogy-labs/moralogy/pkg/observability"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	p, err := observability.New(context.Background(), &observability.Config{Enabled: false, ServiceName: "test"})
	require.NoError(t, err)

	ctx, span := p.StartSpan(context.Background(), "test.operation")
	assert.NotNil(t, ctx)
	span.End()

	// Instrument calls must be safe without a backend.
	p.RecordDeliberation(ctx, "risk", "INTERVENE_FIRST", false)
	p.RecordError(ctx, "analyze")
	p.RecordDuration(ctx, "analyze", 10*time.Millisecond)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNew_NilConfigUsesDefaults(t *testing.T) {
	p, err := observability.New(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, p.Shutdown(context.Background()))
}
