package application_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	catalogapp "github.com/dmehra2102/campus-cafe/internal/catalog/application"
	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
	catalogmem "github.com/dmehra2102/campus-cafe/internal/catalog/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/internal/order/application"
	ordermem "github.com/dmehra2102/campus-cafe/internal/order/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
	"github.com/dmehra2102/campus-cafe/pkg/metrics"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
)

var start = time.Date(2025, time.November, 3, 9, 30, 0, 0, time.UTC)

const (
	sweepEvery = 2 * time.Second
	readyAfter = 8 * time.Second
)

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sized(s, m, l string) *catalog.SizePrices {
	return &catalog.SizePrices{S: money(s), M: money(m), L: money(l)}
}

func testCatalog() *catalogapp.Service {
	return catalogapp.NewService(catalogmem.New(
		[]catalog.Location{
			{ID: "laughinggoat", Name: "The Laughing Goat", Address: "Norlin Commons", WaitMinutes: 4, Open: true},
			{ID: "fens", Name: "Fens Cafe", Address: "Engineering Center", WaitMinutes: 6, Open: true},
			{ID: "kiosk", Name: "Night Kiosk", Address: "UMC", WaitMinutes: 2, Open: false},
		},
		map[string][]catalog.MenuItem{
			"laughinggoat": {
				{ID: "latte", Name: "Latte", Price: money("4.50"), Kind: catalog.KindDrink},
				{ID: "cappuccino", Name: "Cappuccino", Price: money("4.50"), Kind: catalog.KindDrink, Sizes: sized("4.00", "4.50", "5.00")},
				{ID: "croissant", Name: "Croissant", Price: money("3.50"), Kind: catalog.KindFood},
			},
			"fens": {
				{ID: "drip", Name: "Drip Coffee", Price: money("2.50"), Kind: catalog.KindDrink},
			},
		},
	))
}

type fixture struct {
	svc     *application.Service
	tracker *application.Tracker
	repo    *ordermem.Repository
	clk     *clock.Manual
	metrics *metrics.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := ordermem.NewRepository(outbox.NewMemoryStore())
	clk := clock.NewManual(start)
	m := metrics.NewRegistry()
	svc := application.NewService(log, application.NewSessionStore(), testCatalog(), repo, clk, m)
	return &fixture{
		svc:     svc,
		tracker: application.NewTracker(log, svc, sweepEvery, readyAfter),
		repo:    repo,
		clk:     clk,
		metrics: m,
	}
}

// atGoat starts a session with The Laughing Goat selected.
func (f *fixture) atGoat(t *testing.T) string {
	t.Helper()
	sess := f.svc.NewSession()
	_, err := f.svc.SelectLocation(context.Background(), sess.ID, "laughinggoat")
	require.NoError(t, err)
	return sess.ID
}

func (f *fixture) eventTypes() []string {
	var out []string
	for _, e := range f.repo.Outbox().Events() {
		out = append(out, e.Type)
	}
	return out
}

func outboxEvent() outbox.Event {
	return outbox.Event{AggregateType: "order", Type: "OrderPlaced", Payload: []byte(`{}`)}
}

// restarted builds a fresh service over the same order history and clock, as
// after a process restart.
func (f *fixture) restarted() *fixture {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.NewRegistry()
	svc := application.NewService(log, application.NewSessionStore(), testCatalog(), f.repo, f.clk, m)
	return &fixture{
		svc:     svc,
		tracker: application.NewTracker(log, svc, sweepEvery, readyAfter),
		repo:    f.repo,
		clk:     f.clk,
		metrics: m,
	}
}
