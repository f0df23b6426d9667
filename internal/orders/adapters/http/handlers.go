package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/pmilosev/idemgate/internal/idempotency"
	"github.com/pmilosev/idemgate/internal/orders/app"
	"github.com/pmilosev/idemgate/internal/orders/domain"
	"github.com/pmilosev/idemgate/internal/orders/ports"
)

// replayedHeader marks responses served from the idempotency cache. It is
// observability metadata only: replayed and fresh responses are otherwise
// payload- and status-identical.
const replayedHeader = "Idempotency-Replayed"

// Handler exposes HTTP endpoints for order operations. Order creation is
// guarded by the idempotency interceptor when the client presents an
// Idempotency-Key header; without the header the request passes through
// unprotected.
type Handler struct {
	service     *app.Service
	interceptor *idempotency.Interceptor
	createOp    idempotency.Operation
}

// NewHandler constructs a Handler. opts adjust the create operation's
// idempotency configuration (TTL, payload validation).
func NewHandler(service *app.Service, interceptor *idempotency.Interceptor, opts ...idempotency.Option) *Handler {
	createOp := idempotency.NewOperation("orders.create", createOrderKey, opts...)

	return &Handler{
		service:     service,
		interceptor: interceptor,
		createOp:    createOp,
	}
}

// createOrderKey scopes the client-supplied header value to the orders
// namespace. No header means no key, which disables deduplication for the
// call.
func createOrderKey(args idempotency.Args) (string, error) {
	key, _ := args["idempotency_key"].(string)
	if key == "" {
		return "", nil
	}
	return "orders:" + key, nil
}

// Register binds the order handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/orders", h.handleOrders)
	mux.HandleFunc("/v1/orders/", h.handleOrderByID)
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/v1/orders/")
	if trimmed == "" {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if strings.HasSuffix(trimmed, "/cancel") {
		id := strings.TrimSuffix(trimmed, "/cancel")
		id = strings.TrimSuffix(id, "/")
		if id == "" {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.cancelOrder(w, r, id)
		return
	}

	id := strings.TrimSuffix(trimmed, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.getOrder(w, r, id)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload app.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	args := idempotency.Args{
		"idempotency_key": strings.TrimSpace(r.Header.Get("Idempotency-Key")),
		"customer_email":  payload.CustomerEmail,
		"amount_cents":    payload.AmountCents,
		"currency":        payload.Currency,
	}

	envelope, err := h.interceptor.Execute(ctx, h.createOp, args, func(ctx context.Context) (*idempotency.Response, error) {
		order, err := h.service.CreateOrder(ctx, payload)
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(map[string]any{"order": order})
		if err != nil {
			return nil, err
		}

		return &idempotency.Response{StatusCode: http.StatusCreated, Body: body}, nil
	})
	if err != nil {
		if errors.Is(err, idempotency.ErrPayloadConflict) {
			writeError(w, http.StatusConflict, "Idempotency-Key already used with a different payload")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if envelope == nil {
		writeError(w, http.StatusInternalServerError, "no response captured")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if envelope.FromCache {
		w.Header().Set(replayedHeader, "true")
	}
	w.WriteHeader(envelope.StatusCode)
	_, _ = w.Write(envelope.Body)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	filter := ports.ListFilter{}
	if statusParam := r.URL.Query().Get("status"); statusParam != "" {
		status := domain.OrderStatus(statusParam)
		filter.Status = &status
	}

	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if page, err := strconv.Atoi(pageParam); err == nil {
			filter.Page = page
		}
	}

	if pageSizeParam := r.URL.Query().Get("page_size"); pageSizeParam != "" {
		if pageSize, err := strconv.Atoi(pageSizeParam); err == nil {
			filter.PageSize = pageSize
		}
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.service.CancelOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
