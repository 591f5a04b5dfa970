package debug

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSample_HasGoroutines(t *testing.T) {
	attrs := Sample()
	require.NotEmpty(t, attrs)
	assert.Equal(t, "goroutines", attrs[0].Key)
	assert.Positive(t, attrs[0].Value.Uint64())
}

func TestRSSKey_NamesPeakOnUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		assert.Equal(t, "rss", rssKey)
		return
	}
	if runtime.GOOS == "linux" || runtime.GOOS == "darwin" {
		assert.Equal(t, "max_rss", rssKey)
	}
}

func TestStartStatsLogger_IncludesExtraAttrs(t *testing.T) {
	out := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(out, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	StartStatsLogger(ctx, 5*time.Millisecond, logger, func() []slog.Attr {
		return []slog.Attr{slog.Int64("saved", 3)}
	})
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"saved":3`)
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), `"heap_alloc"`)
	assert.Contains(t, out.String(), `"`+rssKey+`"`)
}
