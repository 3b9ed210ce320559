package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	catalogapp "github.com/dmehra2102/campus-cafe/internal/catalog/application"
	catalog "github.com/dmehra2102/campus-cafe/internal/catalog/domain"
	notifdomain "github.com/dmehra2102/campus-cafe/internal/notification/domain"
	"github.com/dmehra2102/campus-cafe/internal/order/application"
	"github.com/dmehra2102/campus-cafe/internal/order/domain"
	prefapp "github.com/dmehra2102/campus-cafe/internal/preferences/application"
	prefdomain "github.com/dmehra2102/campus-cafe/internal/preferences/domain"
)

type Handler struct {
	log         *slog.Logger
	service     *application.Service
	catalog     *catalogapp.Service
	prefs       *prefapp.Service
	metrics     http.Handler
	idempotency func(http.Handler) http.Handler
	inbox       Inbox
	tracer      trace.Tracer
}

// Inbox lists the notifications delivered to a session.
type Inbox interface {
	For(sessionID string) []notifdomain.Notification
}

type Option func(*Handler)

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option { return func(x *Handler) { x.metrics = h } }

// WithIdempotency wraps order placement in mw.
func WithIdempotency(mw func(http.Handler) http.Handler) Option {
	return func(x *Handler) { x.idempotency = mw }
}

// SessionScope claims idempotency keys per session, so two sessions may
// reuse the same key.
func SessionScope(name string) func(*http.Request) string {
	return func(r *http.Request) string { return name + ":" + chi.URLParam(r, "sessionID") }
}

func WithInbox(in Inbox) Option { return func(x *Handler) { x.inbox = in } }

func NewHandler(log *slog.Logger, service *application.Service, cat *catalogapp.Service, prefs *prefapp.Service, opts ...Option) *Handler {
	h := &Handler{
		log:     log,
		service: service,
		catalog: cat,
		prefs:   prefs,
		tracer:  otel.Tracer("order-http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Get("/locations", h.listLocations)
	r.Get("/locations/{locationID}/menu", h.locationMenu)
	r.Get("/options", h.options)

	r.Post("/sessions", h.createSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Delete("/", h.endSession)
		r.Get("/badge", h.badge)
		r.Put("/location", h.selectLocation)
		r.Get("/menu", h.sessionMenu)
		r.Get("/pickup-slots", h.pickupSlots)
		r.Post("/customizations/preview", h.previewCustomization)

		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/lines", h.addLine)
		r.Delete("/cart/lines", h.removeLine)

		place := http.Handler(http.HandlerFunc(h.placeOrder))
		if h.idempotency != nil {
			place = h.idempotency(place)
		}
		r.Method(http.MethodPost, "/orders", place)
		r.Get("/orders", h.listOrders)
		r.Get("/orders/{orderID}", h.getOrder)
		r.Get("/orders/{orderID}/receipt", h.receipt)
		r.Post("/orders/{orderID}/pickup", h.confirmPickup)
		r.Post("/orders/{orderID}/reorder", h.reorder)

		r.Get("/preferences", h.getPreferences)
		r.Put("/preferences", h.putPreferences)
		if h.inbox != nil {
			r.Get("/notifications", h.notifications)
		}
	})
	return r
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListLocations")
	defer span.End()

	locs, err := h.catalog.Locations(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

func (h *Handler) locationMenu(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "LocationMenu")
	defer span.End()

	items, err := h.catalog.Menu(ctx, chi.URLParam(r, "locationID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type optionsResp struct {
	Sizes     []domain.Option `json:"sizes"`
	Milks     []domain.Option `json:"milks"`
	Syrups    []domain.Option `json:"syrups"`
	Allergens []string        `json:"allergens"`
	MaxNote   int             `json:"maxNoteLength"`
}

func (h *Handler) options(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, optionsResp{
		Sizes:     domain.SizeOptions,
		Milks:     domain.MilkOptions,
		Syrups:    domain.SyrupOptions,
		Allergens: prefdomain.Allergens,
		MaxNote:   domain.MaxNoteLength,
	})
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "CreateSession")
	defer span.End()

	sess := h.service.NewSession()
	writeJSON(w, http.StatusCreated, map[string]string{"sessionId": sess.ID})
}

func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	h.service.EndSession(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

type badgeResp struct {
	ActiveOrders int `json:"activeOrders"`
	CartCount    int `json:"cartCount"`
}

func (h *Handler) badge(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeResp{ActiveOrders: sess.ActiveOrderCount(), CartCount: sess.Cart().LineCount})
}

type selectLocationReq struct {
	LocationID string `json:"locationId"`
}

func (h *Handler) selectLocation(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SelectLocation")
	defer span.End()

	var req selectLocationReq
	if !h.decode(w, r, &req) {
		return
	}
	span.SetAttributes(attribute.String("location.id", req.LocationID))
	view, err := h.service.SelectLocation(ctx, chi.URLParam(r, "sessionID"), req.LocationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type menuItemResp struct {
	catalog.MenuItem
	AllergenWarnings []string `json:"allergenWarnings,omitempty"`
}

func (h *Handler) sessionMenu(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SessionMenu")
	defer span.End()

	sid := chi.URLParam(r, "sessionID")
	items, err := h.service.Menu(ctx, sid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	allergens := h.prefs.Allergens(ctx, sid)
	out := make([]menuItemResp, 0, len(items))
	for _, item := range items {
		out = append(out, menuItemResp{MenuItem: item, AllergenWarnings: item.AllergensIn(allergens)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) pickupSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.service.PickupSlots(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"slots": slots})
}

type previewReq struct {
	ItemID        string         `json:"itemId"`
	Customization domain.Choices `json:"customization"`
}

type previewResp struct {
	Customization  *domain.Customization `json:"customization"`
	MilkAllergens  []string              `json:"milkAllergens,omitempty"`
	AllergenNotice string                `json:"allergenNotice,omitempty"`
}

func (h *Handler) previewCustomization(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PreviewCustomization")
	defer span.End()

	var req previewReq
	if !h.decode(w, r, &req) {
		return
	}
	sid := chi.URLParam(r, "sessionID")
	c, err := h.service.PreviewCustomization(ctx, sid, req.ItemID, req.Customization)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := previewResp{Customization: c}
	if hits := domain.MilkAllergens(c.Milk, h.prefs.Allergens(ctx, sid)); len(hits) > 0 {
		resp.MilkAllergens = hits
		resp.AllergenNotice = "Selected milk contains allergens you've selected"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Cart(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ClearCart(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addLineReq struct {
	application.LineRef
	Quantity int `json:"quantity"`
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddLine")
	defer span.End()

	var req addLineReq
	if !h.decode(w, r, &req) {
		return
	}
	span.SetAttributes(attribute.String("item.id", req.ItemID))
	view, err := h.service.AddItem(ctx, chi.URLParam(r, "sessionID"), req.LineRef, req.Quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type removeLineResp struct {
	application.CartView
	Changed bool `json:"changed"`
}

// removeLine takes one unit off a line, or the whole line with ?all=true.
func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveLine")
	defer span.End()

	var ref application.LineRef
	if !h.decode(w, r, &ref) {
		return
	}
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	sid := chi.URLParam(r, "sessionID")

	var (
		view    application.CartView
		changed bool
		err     error
	)
	if all {
		view, changed, err = h.service.ClearItem(ctx, sid, ref)
	} else {
		view, changed, err = h.service.RemoveItem(ctx, sid, ref)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removeLineResp{CartView: view, Changed: changed})
}

type placeOrderReq struct {
	Pickup domain.PickupChoice `json:"pickup"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PlaceOrder")
	defer span.End()

	var req placeOrderReq
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.service.PlaceOrder(ctx, chi.URLParam(r, "sessionID"), req.Pickup)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	resp := struct {
		domain.Order
		Display domain.OrderStatus `json:"displayStatus"`
	}{Order: o, Display: domain.StatusConfirmed}
	writeJSON(w, http.StatusCreated, resp)
}

// listOrders returns all orders, or one view with ?view=active|past|recent.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var orders []domain.Order
	switch r.URL.Query().Get("view") {
	case "active":
		orders = sess.ActiveOrders()
	case "past":
		orders = sess.PastOrders()
	case "recent":
		orders = sess.RecentOrders()
	case "":
		orders = sess.Orders()
	default:
		writeError(w, http.StatusBadRequest, "unknown view")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) order(w http.ResponseWriter, r *http.Request) (domain.Order, bool) {
	sess, err := h.service.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return domain.Order{}, false
	}
	o, ok := sess.Order(chi.URLParam(r, "orderID"))
	if !ok {
		h.fail(w, r, application.ErrOrderNotFound)
		return domain.Order{}, false
	}
	return o, true
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	if o, ok := h.order(w, r); ok {
		writeJSON(w, http.StatusOK, o)
	}
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	if o, ok := h.order(w, r); ok {
		writeJSON(w, http.StatusOK, o.Receipt())
	}
}

type confirmPickupReq struct {
	Rating int `json:"rating"`
}

func (h *Handler) confirmPickup(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ConfirmPickup")
	defer span.End()

	var req confirmPickupReq
	if !h.decode(w, r, &req) {
		return
	}
	o, err := h.service.ConfirmPickup(ctx, chi.URLParam(r, "sessionID"), chi.URLParam(r, "orderID"), req.Rating)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Reorder")
	defer span.End()

	res, err := h.service.Reorder(ctx, chi.URLParam(r, "sessionID"), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	span.SetAttributes(attribute.Int("reorder.dropped", len(res.Dropped)))
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getPreferences(w http.ResponseWriter, r *http.Request) {
	p, err := h.prefs.Load(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) putPreferences(w http.ResponseWriter, r *http.Request) {
	p := prefdomain.Defaults()
	if !h.decode(w, r, &p) {
		return
	}
	saved, err := h.prefs.Save(r.Context(), chi.URLParam(r, "sessionID"), p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *Handler) notifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.inbox.For(chi.URLParam(r, "sessionID")))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, status, "internal error")
		return
	}
	h.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "err", err)
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrSessionNotFound),
		errors.Is(err, application.ErrOrderNotFound),
		errors.Is(err, catalogapp.ErrLocationNotFound),
		errors.Is(err, catalogapp.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrLocationClosed),
		errors.Is(err, domain.ErrOrderNotReady),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrLocationMismatch):
		return http.StatusConflict
	case errors.Is(err, application.ErrNoLocation),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrPickupTimeRequired),
		errors.Is(err, domain.ErrNotCustomizable),
		errors.Is(err, domain.ErrUnknownSize),
		errors.Is(err, domain.ErrSizeMismatch),
		errors.Is(err, domain.ErrUnknownMilk),
		errors.Is(err, domain.ErrUnknownSyrup),
		errors.Is(err, domain.ErrNoteTooLong),
		errors.Is(err, prefdomain.ErrUnknownAllergen):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
