package sink_test

import (
	"context"
	"testing"

	"github.com/richardpark-msft/rawdump/internal/sink"
	"github.com/richardpark-msft/rawdump/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestConnSink_Live(t *testing.T) {
	testEnv := testhelpers.LoadEnv("../..")

	if !testEnv.LiveTests {
		t.Skip("Live tests are disabled, set " + testhelpers.EnvCollector + " in the .env file to enable them")
	}

	s, err := sink.DialConnSink(context.Background(), testEnv.Collector, nil)
	require.NoError(t, err)

	stats, err := sink.Pump(context.Background(), sink.Records(func(yield func([]byte, error) bool) {
		_ = yield([]byte("hello"), nil) && yield([]byte("world"), nil)
	}, ""), s, nil)
	require.NoError(t, err)
	require.Equal(t, sink.Stats{Records: 2, Bytes: 10}, stats)

	require.NoError(t, s.Close())
}
