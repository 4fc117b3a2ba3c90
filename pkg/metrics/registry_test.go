package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsEnabled_FalseBeforeInit(t *testing.T) {
	Reset()
	require.False(t, IsEnabled())
	require.Nil(t, GetRegistry())
	require.Nil(t, Handler())
}

func TestInitRegistry_EnablesMetrics(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	reg := InitRegistry()
	require.NotNil(t, reg)
	require.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())
	require.NotNil(t, Handler())
}

func TestNewFileMapMetrics_NilWhenDisabled(t *testing.T) {
	Reset()
	require.Nil(t, NewFileMapMetrics())
}
