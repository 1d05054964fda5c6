package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemservice/internal/form"
	"github.com/vyrodovalexey/itemservice/internal/model"
	"github.com/vyrodovalexey/itemservice/internal/redirect"
	"github.com/vyrodovalexey/itemservice/internal/store"
	"github.com/vyrodovalexey/itemservice/internal/view"
)

// Route paths and redirect templates.
const (
	ItemsPath        = "/items"
	AddItemPath      = "/items/add"
	ItemPathTemplate = "/items/{itemId}"
	EditPathTemplate = "/items/{itemId}/edit"

	itemIDVar = "itemId"
)

// Item operations recorded in the items_operations_total metric.
const (
	operationCreate = "create"
	operationUpdate = "update"
	operationSeed   = "seed"
)

var itemOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "items_operations_total",
		Help: "Total number of successful item write operations",
	},
	[]string{"operation"},
)

// EventPublisher receives item change events.
type EventPublisher interface {
	Publish(event model.ItemEvent)
}

// ItemHandler serves the item pages.
type ItemHandler struct {
	store    store.Store
	renderer view.Renderer
	events   EventPublisher
	logger   *zap.Logger
}

// NewItemHandler creates a new ItemHandler instance. events may be nil.
func NewItemHandler(
	s store.Store,
	renderer view.Renderer,
	events EventPublisher,
	logger *zap.Logger,
) *ItemHandler {
	return &ItemHandler{
		store:    s,
		renderer: renderer,
		events:   events,
		logger:   logger,
	}
}

// RegisterRoutes registers the item routes with the router.
func (h *ItemHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Index).Methods(http.MethodGet)
	router.HandleFunc(ItemsPath, h.List).Methods(http.MethodGet)
	router.HandleFunc(AddItemPath, h.AddForm).Methods(http.MethodGet)
	router.HandleFunc(AddItemPath, h.Create).Methods(http.MethodPost)
	router.HandleFunc("/items/{itemId:[0-9]+}", h.Detail).Methods(http.MethodGet)
	router.HandleFunc("/items/{itemId:[0-9]+}/edit", h.EditForm).Methods(http.MethodGet)
	router.HandleFunc("/items/{itemId:[0-9]+}/edit", h.Update).Methods(http.MethodPost)
}

// Seed stores the two sample items shown on a fresh start.
func (h *ItemHandler) Seed(ctx context.Context) error {
	samples := []*model.Item{
		model.NewItem("itemA", 10000, 10),
		model.NewItem("itemB", 20000, 20),
	}

	for _, sample := range samples {
		saved, err := h.store.Save(ctx, sample)
		if err != nil {
			return fmt.Errorf("seeding item %s: %w", sample.ItemName, err)
		}
		itemOperationsTotal.WithLabelValues(operationSeed).Inc()
		h.logger.Info("seeded item",
			zap.Int64("item_id", saved.ID),
			zap.String("item_name", saved.ItemName),
		)
	}

	return nil
}

// Index handles GET / requests.
func (h *ItemHandler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, ItemsPath, http.StatusFound)
}

// List handles GET /items requests.
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.FindAll(r.Context())
	if err != nil {
		h.handleStoreError(w, err, "list items")
		return
	}

	h.render(w, http.StatusOK, view.Items, view.ItemsPage{Items: items})
}

// Detail handles GET /items/{itemId} requests.
// A status=true query parameter marks a redirect after a successful create.
func (h *ItemHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	item, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	saved, _ := strconv.ParseBool(r.URL.Query().Get("status"))

	h.render(w, http.StatusOK, view.Item, view.ItemPage{Item: *item, Saved: saved})
}

// AddForm handles GET /items/add requests.
func (h *ItemHandler) AddForm(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, view.AddForm, view.FormPage{Action: AddItemPath})
}

// Create handles POST /items/add requests.
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("invalid form body", zap.Error(err))
		h.renderError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	item, err := form.ParseItem(r.PostForm)
	if err != nil {
		page := view.FormPage{Item: *item, Action: AddItemPath, Submitted: form.Submitted(r.PostForm)}
		h.handleFormError(w, view.AddForm, page, err)
		return
	}

	saved, err := h.store.Save(r.Context(), item)
	if err != nil {
		h.handleStoreError(w, err, "create item")
		return
	}

	itemOperationsTotal.WithLabelValues(operationCreate).Inc()
	h.publish(model.EventTypeItemCreated, saved)

	attrs := redirect.NewAttributes().
		Add(itemIDVar, saved.ID).
		Add("status", true)
	h.redirect(w, r, ItemPathTemplate, attrs)
}

// EditForm handles GET /items/{itemId}/edit requests.
func (h *ItemHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	item, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.handleStoreError(w, err, "get item")
		return
	}

	action, err := editAction(id)
	if err != nil {
		h.logger.Error("failed to build form action", zap.Error(err))
		h.renderError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.render(w, http.StatusOK, view.EditForm, view.FormPage{Item: *item, Action: action})
}

// Update handles POST /items/{itemId}/edit requests.
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := itemID(r)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	if err := r.ParseForm(); err != nil {
		h.logger.Warn("invalid form body", zap.Error(err))
		h.renderError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	data, err := form.ParseItem(r.PostForm)
	if err != nil {
		// Report a missing item before complaining about its form.
		if _, findErr := h.store.FindByID(ctx, id); findErr != nil {
			h.handleStoreError(w, findErr, "update item")
			return
		}
		data.ID = id
		action, actionErr := editAction(id)
		if actionErr != nil {
			h.logger.Error("failed to build form action", zap.Error(actionErr))
			h.renderError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		page := view.FormPage{Item: *data, Action: action, Submitted: form.Submitted(r.PostForm)}
		h.handleFormError(w, view.EditForm, page, err)
		return
	}

	updated, err := h.store.Update(ctx, id, data)
	if err != nil {
		h.handleStoreError(w, err, "update item")
		return
	}

	itemOperationsTotal.WithLabelValues(operationUpdate).Inc()
	h.publish(model.EventTypeItemUpdated, updated)

	h.redirect(w, r, ItemPathTemplate, redirect.NewAttributes().Add(itemIDVar, id))
}

// itemID extracts the item ID path variable.
func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[itemIDVar], 10, 64)
	if err != nil {
		return 0, store.ErrInvalidID
	}
	return id, nil
}

// editAction builds the edit form target for id.
func editAction(id int64) (string, error) {
	return redirect.NewAttributes().Add(itemIDVar, id).Expand(EditPathTemplate)
}

// publish forwards an item event when an event publisher is configured.
func (h *ItemHandler) publish(eventType string, item *model.Item) {
	if h.events == nil {
		return
	}
	h.events.Publish(model.NewItemEvent(eventType, *item))
}

// redirect expands the target template and answers with 303 See Other.
func (h *ItemHandler) redirect(
	w http.ResponseWriter,
	r *http.Request,
	template string,
	attrs *redirect.Attributes,
) {
	target, err := attrs.Expand(template)
	if err != nil {
		h.logger.Error("failed to build redirect", zap.String("template", template), zap.Error(err))
		h.renderError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleFormError re-renders a form with field messages, or fails with 500
// for anything that is not a validation error.
func (h *ItemHandler) handleFormError(w http.ResponseWriter, name string, page view.FormPage, err error) {
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		h.logger.Error("form binding failed", zap.String("view", name), zap.Error(err))
		h.renderError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Warn("validation failed", zap.String("view", name), zap.Error(err))
	page.Errors = verr.Fields
	h.render(w, http.StatusBadRequest, name, page)
}

// handleStoreError handles store errors and writes appropriate HTTP responses.
func (h *ItemHandler) handleStoreError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.renderError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, store.ErrInvalidID):
		h.renderError(w, http.StatusBadRequest, "invalid item ID")
	default:
		h.logger.Error("store operation failed", zap.String("operation", operation), zap.Error(err))
		h.renderError(w, http.StatusInternalServerError, "internal server error")
	}
}

// renderError renders the error view with the given status code.
func (h *ItemHandler) renderError(w http.ResponseWriter, status int, message string) {
	h.render(w, status, view.Error, view.ErrorPage{
		Status:  status,
		Title:   http.StatusText(status),
		Message: message,
	})
}

// render buffers the view so a template failure can still produce a 500.
func (h *ItemHandler) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, name, data); err != nil {
		h.logger.Error("failed to render view", zap.String("view", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("failed to write response", zap.Error(err))
	}
}
