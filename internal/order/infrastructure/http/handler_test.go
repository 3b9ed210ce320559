package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogapp "github.com/dmehra2102/campus-cafe/internal/catalog/application"
	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
	catalogmem "github.com/dmehra2102/campus-cafe/internal/catalog/infrastructure/memory"
	notifdomain "github.com/dmehra2102/campus-cafe/internal/notification/domain"
	notifmem "github.com/dmehra2102/campus-cafe/internal/notification/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/internal/order/application"
	"github.com/dmehra2102/campus-cafe/internal/order/domain"
	ordermem "github.com/dmehra2102/campus-cafe/internal/order/infrastructure/memory"
	prefapp "github.com/dmehra2102/campus-cafe/internal/preferences/application"
	prefmem "github.com/dmehra2102/campus-cafe/internal/preferences/infrastructure/memory"
	"github.com/dmehra2102/campus-cafe/pkg/clock"
	"github.com/dmehra2102/campus-cafe/pkg/idempotency"
	"github.com/dmehra2102/campus-cafe/pkg/metrics"
	"github.com/dmehra2102/campus-cafe/pkg/outbox"
)

type keySet struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (k *keySet) Key(scope, key string) string { return scope + ":" + key }

func (k *keySet) Seen(_ context.Context, key string) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	seen := k.keys[key]
	k.keys[key] = true
	return seen, nil
}

func (k *keySet) Forget(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, key)
	return nil
}

type env struct {
	srv     *httptest.Server
	clk     *clock.Manual
	tracker *application.Tracker
	inbox   *notifmem.Inbox
}

func money(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEnv(t *testing.T) *env {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cat := catalogapp.NewService(catalogmem.New(
		[]catalog.Location{
			{ID: "laughinggoat", Name: "The Laughing Goat", Address: "Norlin Commons", WaitMinutes: 4, Open: true},
			{ID: "kiosk", Name: "Night Kiosk", Open: false},
		},
		map[string][]catalog.MenuItem{
			"laughinggoat": {
				{ID: "latte", Name: "Latte", Price: money("4.50"), Kind: catalog.KindDrink, Allergens: []string{"dairy"}},
				{ID: "croissant", Name: "Croissant", Price: money("3.50"), Kind: catalog.KindFood, Allergens: []string{"gluten", "dairy"}},
			},
		},
	))
	clk := clock.NewManual(time.Date(2025, time.November, 3, 9, 30, 0, 0, time.UTC))
	m := metrics.NewRegistry()
	svc := application.NewService(log, application.NewSessionStore(), cat,
		ordermem.NewRepository(outbox.NewMemoryStore()), clk, m)
	prefs := prefapp.NewService(log, prefmem.NewStore())
	inbox := notifmem.NewInbox()

	h := NewHandler(log, svc, cat, prefs,
		WithMetrics(m.Handler()),
		WithIdempotency(idempotency.Middleware(log, &keySet{keys: map[string]bool{}}, SessionScope("place-order"))),
		WithInbox(inbox),
	)
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &env{srv: srv, clk: clk, tracker: application.NewTracker(log, svc, time.Second, 8*time.Second), inbox: inbox}
}

func (e *env) do(t *testing.T, method, path string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (e *env) session(t *testing.T) string {
	t.Helper()
	code, body := e.do(t, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, code)
	return body["sessionId"].(string)
}

func TestOrderingFlow(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t)
	base := "/sessions/" + sid

	code, _ := e.do(t, http.MethodPost, base+"/cart/lines", map[string]any{"itemId": "latte"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "no location selected")

	code, _ = e.do(t, http.MethodPut, base+"/location", map[string]string{"locationId": "kiosk"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(t, http.MethodPut, base+"/location", map[string]string{"locationId": "laughinggoat"})
	require.Equal(t, http.StatusOK, code)

	code, _ = e.do(t, http.MethodPost, base+"/cart/lines", map[string]any{"itemId": "latte", "quantity": 2})
	require.Equal(t, http.StatusOK, code)
	code, cart := e.do(t, http.MethodPost, base+"/cart/lines", map[string]any{"itemId": "croissant"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "12.5", cart["subtotal"])
	assert.Equal(t, "13.5", cart["total"])
	assert.Equal(t, float64(3), cart["lineCount"])

	code, _ = e.do(t, http.MethodPost, base+"/orders", map[string]any{"pickup": map[string]any{"asap": false}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, order := e.do(t, http.MethodPost, base+"/orders", map[string]any{"pickup": map[string]any{"asap": true}},
		idempotency.Header, "k-1")
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "preparing", order["status"])
	assert.Equal(t, "confirmed", order["displayStatus"])
	assert.Equal(t, "ASAP (~4 min)", order["pickupTime"])
	assert.Equal(t, []any{"2x Latte", "1x Croissant"}, order["items"])
	oid := order["id"].(string)

	code, _ = e.do(t, http.MethodPost, base+"/orders", map[string]any{"pickup": map[string]any{"asap": true}},
		idempotency.Header, "k-1")
	assert.Equal(t, http.StatusConflict, code, "replayed key")

	code, badge := e.do(t, http.MethodGet, base+"/badge", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), badge["activeOrders"])
	assert.Equal(t, float64(0), badge["cartCount"])

	code, _ = e.do(t, http.MethodPost, base+"/orders/"+oid+"/pickup", map[string]int{"rating": 4})
	assert.Equal(t, http.StatusConflict, code, "not ready yet")

	e.clk.Advance(9 * time.Second)
	require.Equal(t, 1, e.tracker.Sweep(context.Background()))

	code, _ = e.do(t, http.MethodPost, base+"/orders/"+oid+"/pickup", map[string]int{"rating": 7})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	code, done := e.do(t, http.MethodPost, base+"/orders/"+oid+"/pickup", map[string]int{"rating": 4})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", done["status"])
	assert.Equal(t, float64(4), done["rating"])

	code, receipt := e.do(t, http.MethodGet, base+"/orders/"+oid+"/receipt", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1", receipt["tax"])
	assert.Len(t, receipt["lines"], 2)

	code, re := e.do(t, http.MethodPost, base+"/orders/"+oid+"/reorder", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, re["dropped"])
	assert.Equal(t, float64(3), re["cart"].(map[string]any)["lineCount"])

	code, _ = e.do(t, http.MethodGet, base+"/orders/order-nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestListOrdersViews(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t)
	base := "/sessions/" + sid
	e.do(t, http.MethodPut, base+"/location", map[string]string{"locationId": "laughinggoat"})
	e.do(t, http.MethodPost, base+"/cart/lines", map[string]any{"itemId": "croissant"})
	code, _ := e.do(t, http.MethodPost, base+"/orders", map[string]any{"pickup": map[string]any{"time": "10:15 AM"}})
	require.Equal(t, http.StatusCreated, code)

	for view, want := range map[string]int{"": 1, "active": 1, "past": 0, "recent": 1} {
		resp, err := http.Get(e.srv.URL + base + "/orders?view=" + view)
		require.NoError(t, err)
		var orders []domain.Order
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
		resp.Body.Close()
		assert.Len(t, orders, want, view)
	}

	code, _ = e.do(t, http.MethodGet, base+"/orders?view=mine", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRemoveLine(t *testing.T) {
	e := newEnv(t)
	base := "/sessions/" + e.session(t)
	e.do(t, http.MethodPut, base+"/location", map[string]string{"locationId": "laughinggoat"})
	e.do(t, http.MethodPost, base+"/cart/lines", map[string]any{"itemId": "latte", "quantity": 3})

	code, cart := e.do(t, http.MethodDelete, base+"/cart/lines", map[string]any{"itemId": "latte"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, cart["changed"])
	assert.Equal(t, float64(2), cart["lineCount"])

	code, cart = e.do(t, http.MethodDelete, base+"/cart/lines?all=true", map[string]any{"itemId": "latte"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), cart["lineCount"])

	code, cart = e.do(t, http.MethodDelete, base+"/cart/lines", map[string]any{"itemId": "latte"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, cart["changed"])
}

func TestPreferencesAndAdvisories(t *testing.T) {
	e := newEnv(t)
	base := "/sessions/" + e.session(t)

	code, prefs := e.do(t, http.MethodGet, base+"/preferences", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, prefs["notificationsEnabled"])
	assert.Equal(t, false, prefs["promotionalEmails"])

	code, _ = e.do(t, http.MethodPut, base+"/preferences", map[string]any{"allergens": []string{"glitter"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, prefs = e.do(t, http.MethodPut, base+"/preferences", map[string]any{"allergens": []string{"Soy", "gluten"}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"gluten", "soy"}, prefs["allergens"])
	assert.Equal(t, true, prefs["orderReminders"], "omitted fields keep defaults")

	e.do(t, http.MethodPut, base+"/location", map[string]string{"locationId": "laughinggoat"})
	resp, err := http.Get(e.srv.URL + base + "/menu")
	require.NoError(t, err)
	var menu []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&menu))
	resp.Body.Close()
	require.Len(t, menu, 2)
	assert.Nil(t, menu[0]["allergenWarnings"])
	assert.Equal(t, []any{"gluten"}, menu[1]["allergenWarnings"])

	code, preview := e.do(t, http.MethodPost, base+"/customizations/preview",
		map[string]any{"itemId": "latte", "customization": map[string]any{"size": "L", "milk": "soy", "syrups": []string{"vanilla"}}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "6.75", preview["customization"].(map[string]any)["totalPrice"])
	assert.Equal(t, []any{"soy"}, preview["milkAllergens"])

	code, _ = e.do(t, http.MethodPost, base+"/customizations/preview",
		map[string]any{"itemId": "croissant", "customization": map[string]any{}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestCatalogRoutes(t *testing.T) {
	e := newEnv(t)

	resp, err := http.Get(e.srv.URL + "/locations")
	require.NoError(t, err)
	var locs []catalog.Location
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&locs))
	resp.Body.Close()
	assert.Len(t, locs, 2)

	code, opts := e.do(t, http.MethodGet, "/options", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, opts["milks"], 6)
	assert.Equal(t, float64(domain.MaxNoteLength), opts["maxNoteLength"])

	resp, err = http.Get(e.srv.URL + "/locations/unknown/menu")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func TestErrors(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/sessions/nope/cart", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "session not found", body["error"])

	sid := e.session(t)
	req, _ := http.NewRequest(http.MethodPut, e.srv.URL+"/sessions/"+sid+"/location", strings.NewReader("{"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	code, _ = e.do(t, http.MethodPut, "/sessions/"+sid+"/location", map[string]string{"locationId": "laughinggoat"})
	require.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPost, "/sessions/"+sid+"/cart/lines",
		map[string]any{"itemId": "latte", "size": "L", "customization": map[string]any{"size": "S"}})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = e.do(t, http.MethodDelete, "/sessions/"+sid, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, _ = e.do(t, http.MethodGet, "/sessions/"+sid+"/cart", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestMetricsEndpoint(t *testing.T) {
	e := newEnv(t)
	resp, err := http.Get(e.srv.URL + "/metrics")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "cafe_orders_placed_total")
}

func TestNotifications(t *testing.T) {
	e := newEnv(t)
	sid := e.session(t)

	resp, err := http.Get(e.srv.URL + "/sessions/" + sid + "/notifications")
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))

	require.NoError(t, e.inbox.Send(context.Background(), notifdomain.Notification{SessionID: sid, OrderID: "order-1", Message: "ready"}))
	resp, err = http.Get(e.srv.URL + "/sessions/" + sid + "/notifications")
	require.NoError(t, err)
	var got []notifdomain.Notification
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	resp.Body.Close()
	require.Len(t, got, 1)
	assert.Equal(t, "ready", got[0].Message)
}

func TestIdempotencyKeyPerSession(t *testing.T) {
	e := newEnv(t)
	place := func(sid string) int {
		base := "/sessions/" + sid
		code, _ := e.do(t, http.MethodPut, base+"/location", map[string]string{"locationId": "laughinggoat"})
		require.Equal(t, http.StatusOK, code)
		code, _ = e.do(t, http.MethodPost, base+"/cart/lines", map[string]any{"itemId": "croissant"})
		require.Equal(t, http.StatusOK, code)
		code, _ = e.do(t, http.MethodPost, base+"/orders", map[string]any{"pickup": map[string]any{"asap": true}},
			idempotency.Header, "shared-key")
		return code
	}

	first, second := e.session(t), e.session(t)
	assert.Equal(t, http.StatusCreated, place(first))
	assert.Equal(t, http.StatusCreated, place(second))
	assert.Equal(t, http.StatusConflict, place(first))
}
