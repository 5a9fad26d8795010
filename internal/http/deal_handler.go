package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/training-erp/internal/application"
	"github.com/example/training-erp/internal/persistence"
)

type dealService interface {
	CreateDeal(ctx context.Context, input application.DealInput) (application.DealView, error)
	GetDeal(ctx context.Context, dealID string) (application.DealView, error)
	ListDeals(ctx context.Context) ([]persistence.Deal, error)
	DeleteDeal(ctx context.Context, dealID string) error
}

type DealHandler struct {
	service   dealService
	responder responder
	logger    *slog.Logger
}

func NewDealHandler(service dealService, logger *slog.Logger) *DealHandler {
	base := defaultLogger(logger)
	return &DealHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *DealHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "DealHandler", operation, attrs...)
}

func (h *DealHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req dealRequest
	if fields := decodeBody(w, r, &req); fields != nil {
		h.log(ctx, "Create", "error_kind", "bad_request").WarnContext(ctx, "invalid deal request")
		h.responder.writeValidation(ctx, w, fields)
		return
	}

	view, err := h.service.CreateDeal(ctx, req.toInput())
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusCreated, map[string]any{"deal": toDealViewDTO(view)})
}

func (h *DealHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view, err := h.service.GetDeal(ctx, strings.TrimSpace(r.PathValue("dealID")))
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"deal": toDealViewDTO(view)})
}

func (h *DealHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	deals, err := h.service.ListDeals(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	out := make([]dealDTO, 0, len(deals))
	for _, deal := range deals {
		out = append(out, toDealDTO(deal))
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"deals": out})
}

func (h *DealHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := strings.TrimSpace(r.PathValue("dealID"))
	if err := h.service.DeleteDeal(ctx, id); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"deleted": id})
}

type dealRequest struct {
	ID               string               `json:"id" validate:"max=64"`
	Title            string               `json:"title" validate:"required,max=200"`
	OrganizationName string               `json:"organization_name" validate:"max=200"`
	DefaultAddress   *string              `json:"default_address" validate:"omitempty,max=500"`
	DefaultSite      *string              `json:"default_site" validate:"omitempty,max=200"`
	Lines            []productLineRequest `json:"lines" validate:"dive"`
}

type productLineRequest struct {
	ID          string      `json:"id" validate:"max=64"`
	ProductCode string      `json:"product_code" validate:"required,max=64"`
	ProductName string      `json:"product_name" validate:"max=200"`
	Quantity    json.Number `json:"quantity" validate:"required"`
	Hours       json.Number `json:"hours"`
}

func (r dealRequest) toInput() application.DealInput {
	input := application.DealInput{
		ID:               r.ID,
		Title:            r.Title,
		OrganizationName: r.OrganizationName,
		DefaultAddress:   r.DefaultAddress,
		DefaultSite:      r.DefaultSite,
		Lines:            make([]application.ProductLineInput, 0, len(r.Lines)),
	}
	for _, line := range r.Lines {
		input.Lines = append(input.Lines, application.ProductLineInput{
			ID:          line.ID,
			ProductCode: line.ProductCode,
			ProductName: line.ProductName,
			Quantity:    line.Quantity.String(),
			Hours:       line.Hours.String(),
		})
	}
	return input
}
