package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/training-erp/internal/application"
	"github.com/example/training-erp/internal/persistence"
)

type resourceService interface {
	CreateRoom(ctx context.Context, input application.RoomInput) (persistence.Room, error)
	ListRooms(ctx context.Context) ([]persistence.Room, error)
	CreateTrainer(ctx context.Context, input application.TrainerInput) (persistence.Trainer, error)
	ListTrainers(ctx context.Context) ([]persistence.Trainer, error)
	SetTrainerActive(ctx context.Context, trainerID string, active bool) (persistence.Trainer, error)
	CreateMobileUnit(ctx context.Context, input application.MobileUnitInput) (persistence.MobileUnit, error)
	ListMobileUnits(ctx context.Context) ([]persistence.MobileUnit, error)
}

// ResourceHandler serves the room, trainer and mobile unit catalogs.
type ResourceHandler struct {
	service   resourceService
	responder responder
	logger    *slog.Logger
}

func NewResourceHandler(service resourceService, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) invalid(ctx context.Context, w http.ResponseWriter, operation string, fields map[string]string) {
	handlerLogger(ctx, h.logger, "ResourceHandler", operation, "error_kind", "bad_request").WarnContext(ctx, "invalid resource request")
	h.responder.writeValidation(ctx, w, fields)
}

func (h *ResourceHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req roomRequest
	if fields := decodeBody(w, r, &req); fields != nil {
		h.invalid(ctx, w, "CreateRoom", fields)
		return
	}
	room, err := h.service.CreateRoom(ctx, application.RoomInput{Name: req.Name, Location: req.Location})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusCreated, map[string]any{"room": toRoomDTO(room)})
}

func (h *ResourceHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rooms, err := h.service.ListRooms(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	out := make([]roomDTO, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toRoomDTO(room))
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"rooms": out})
}

func (h *ResourceHandler) CreateTrainer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req trainerRequest
	if fields := decodeBody(w, r, &req); fields != nil {
		h.invalid(ctx, w, "CreateTrainer", fields)
		return
	}
	trainer, err := h.service.CreateTrainer(ctx, application.TrainerInput{Name: req.Name, Email: req.Email})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusCreated, map[string]any{"trainer": toTrainerDTO(trainer)})
}

func (h *ResourceHandler) ListTrainers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trainers, err := h.service.ListTrainers(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	out := make([]trainerDTO, 0, len(trainers))
	for _, trainer := range trainers {
		out = append(out, toTrainerDTO(trainer))
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"trainers": out})
}

// UpdateTrainer handles PATCH /trainers/{id}; only the active flag is mutable.
func (h *ResourceHandler) UpdateTrainer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req trainerStatusRequest
	if fields := decodeBody(w, r, &req); fields != nil {
		h.invalid(ctx, w, "UpdateTrainer", fields)
		return
	}
	trainer, err := h.service.SetTrainerActive(ctx, strings.TrimSpace(r.PathValue("id")), *req.Active)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"trainer": toTrainerDTO(trainer)})
}

func (h *ResourceHandler) CreateMobileUnit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req mobileUnitRequest
	if fields := decodeBody(w, r, &req); fields != nil {
		h.invalid(ctx, w, "CreateMobileUnit", fields)
		return
	}
	unit, err := h.service.CreateMobileUnit(ctx, application.MobileUnitInput{Name: req.Name, Plate: req.Plate})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	h.responder.writeOK(ctx, w, http.StatusCreated, map[string]any{"mobile_unit": toMobileUnitDTO(unit)})
}

func (h *ResourceHandler) ListMobileUnits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	units, err := h.service.ListMobileUnits(ctx)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	out := make([]mobileUnitDTO, 0, len(units))
	for _, unit := range units {
		out = append(out, toMobileUnitDTO(unit))
	}
	h.responder.writeOK(ctx, w, http.StatusOK, map[string]any{"mobile_units": out})
}

type roomRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Location string `json:"location" validate:"max=200"`
}

type trainerRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
}

type trainerStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type mobileUnitRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Plate string `json:"plate" validate:"required,max=20"`
}
