package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRun_CallsEveryStopAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	var order []string

	err := Run(time.Second,
		func(context.Context) error { order = append(order, "http"); return boom },
		nil,
		func(ctx context.Context) error {
			order = append(order, "pebble")
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return nil
		},
	)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"http", "pebble"}, order)
}

func TestRun_NoStops(t *testing.T) {
	assert.NoError(t, Run(time.Second))
}
