package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chriamue/didcomm-mediator/internal/logger"
)

func newTestChecker(cacheTTL time.Duration) *Checker {
	return NewChecker(logger.NewDefaultLogger(), time.Second, cacheTTL)
}

func TestCheckHealthyAndUnhealthy(t *testing.T) {
	c := newTestChecker(time.Second)
	c.Register("ok", func(context.Context) error { return nil })
	c.Register("bad", func(context.Context) error { return errors.New("down") })

	r, err := c.Check(context.Background(), "ok")
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, r.Status)

	r, err = c.Check(context.Background(), "bad")
	require.NoError(t, err)
	assert.Equal(t, StatusUnhealthy, r.Status)
	assert.Equal(t, "down", r.Message)
}

func TestCheckUnknownName(t *testing.T) {
	c := newTestChecker(time.Second)
	_, err := c.Check(context.Background(), "missing")
	assert.Error(t, err)
}

func TestCheckCaches(t *testing.T) {
	c := newTestChecker(50 * time.Millisecond)
	calls := 0
	c.Register("counted", func(context.Context) error {
		calls++
		return nil
	})

	_, err := c.Check(context.Background(), "counted")
	require.NoError(t, err)
	_, err = c.Check(context.Background(), "counted")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	time.Sleep(60 * time.Millisecond)
	_, err = c.Check(context.Background(), "counted")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestReportAggregatesWorstStatus(t *testing.T) {
	c := newTestChecker(time.Second)
	c.Register("good", func(context.Context) error { return nil })
	c.Register("bad", func(context.Context) error { return errors.New("fail") })

	report := c.Report(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Len(t, report.Checks, 2)
}
