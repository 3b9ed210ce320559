package application_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/campus-cafe/internal/notification/application"
	"github.com/dmehra2102/campus-cafe/internal/notification/infrastructure/memory"
	orderdom "github.com/dmehra2102/campus-cafe/internal/order/domain"
	prefapp "github.com/dmehra2102/campus-cafe/internal/preferences/application"
	prefdomain "github.com/dmehra2102/campus-cafe/internal/preferences/domain"
	prefmem "github.com/dmehra2102/campus-cafe/internal/preferences/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
)

func readyPayload(t *testing.T) []byte {
	t.Helper()
	raw, err := json.Marshal(orderdom.OrderStatusChanged{OrderID: "order-1", Number: "A1B2C3", Status: orderdom.StatusReady})
	require.NoError(t, err)
	return raw
}

func TestHandle(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	prefs := prefapp.NewService(log, prefmem.NewStore())
	inbox := memory.NewInbox()
	at := time.Date(2025, time.November, 3, 9, 30, 0, 0, time.UTC)
	svc := application.NewService(log, prefs, inbox, clock.NewManual(at))

	sent, err := svc.Handle(ctx, orderdom.EventOrderReady, "s1", readyPayload(t))
	require.NoError(t, err)
	assert.True(t, sent)
	got := inbox.For("s1")
	require.Len(t, got, 1)
	assert.Equal(t, "Order #A1B2C3 is ready for pickup", got[0].Message)
	assert.Equal(t, at, got[0].CreatedAt)

	sent, err = svc.Handle(ctx, orderdom.EventOrderPlaced, "s1", []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, sent)

	_, err = prefs.Save(ctx, "s2", prefdomain.Preferences{NotificationsEnabled: false})
	require.NoError(t, err)
	sent, err = svc.Handle(ctx, orderdom.EventOrderReady, "s2", readyPayload(t))
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, inbox.For("s2"))

	_, err = svc.Handle(ctx, orderdom.EventOrderReady, "s1", []byte(`not json`))
	assert.Error(t, err)
}
