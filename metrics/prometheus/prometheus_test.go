package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/squareup/rowstore/conf"
	"github.com/stretchr/testify/require"
)

func TestCreateCounter(t *testing.T) {
	f := NewFactory(*conf.NewTestConfig())
	c, err := f.CreateCounter("rows_written_total", "rows written")
	require.NoError(t, err)
	c.Inc()
	c.Add(2)

	again, err := f.CreateCounter("rows_written_total", "rows written")
	require.NoError(t, err)
	require.Same(t, c, again)
	require.Equal(t, 3.0, testutil.ToFloat64(c.(*Counter).pCounter))
}

func TestStartStop(t *testing.T) {
	cnf := conf.NewTestConfig()
	cnf.MetricsListenAddr = "localhost:0"
	f := NewFactory(*cnf)
	require.Error(t, f.Stop())
	require.NoError(t, f.Start())
	require.Error(t, f.Start())
	require.NoError(t, f.Stop())
}
