package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarksServiceUp(t *testing.T) {
	srv, err := New("registry-test", "127.0.0.1:0")
	require.NoError(t, err)
	require.NotNil(t, srv)

	assert.Equal(t, float64(1), testutil.ToFloat64(serviceUp.WithLabelValues("registry-test")))
}
