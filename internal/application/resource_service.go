package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/training-erp/internal/persistence"
)

// ResourceService manages the rooms, trainers and mobile units sessions consume.
type ResourceService struct {
	store       persistence.Store
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewResourceService constructs a resource service with the provided dependencies.
func NewResourceService(store persistence.Store, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ResourceService {
	if idGenerator == nil {
		idGenerator = NewID
	}
	if now == nil {
		now = time.Now
	}
	return &ResourceService{store: store, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ResourceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ResourceService", operation, attrs...)
}

// CreateRoom validates input and registers a room.
func (s *ResourceService) CreateRoom(ctx context.Context, input RoomInput) (room persistence.Room, err error) {
	if s == nil {
		return persistence.Room{}, fmt.Errorf("ResourceService is nil")
	}
	logger := s.loggerWith(ctx, "CreateRoom")
	defer func() { logOutcome(ctx, logger, err, "room created", "room_id", room.ID) }()

	name := strings.TrimSpace(input.Name)
	if name == "" {
		err = newValidationError("name", "name is required")
		return
	}

	now := s.now().UTC()
	room = persistence.Room{
		ID:        s.idGenerator(),
		Name:      name,
		Location:  strings.TrimSpace(input.Location),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.store.CreateRoom(ctx, room); err != nil {
		room = persistence.Room{}
		err = mapRepoError(err, "name")
	}
	return
}

// ListRooms returns every room ordered by name.
func (s *ResourceService) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}
	return s.store.ListRooms(ctx)
}

// CreateTrainer validates input and registers an active trainer.
func (s *ResourceService) CreateTrainer(ctx context.Context, input TrainerInput) (trainer persistence.Trainer, err error) {
	if s == nil {
		return persistence.Trainer{}, fmt.Errorf("ResourceService is nil")
	}
	logger := s.loggerWith(ctx, "CreateTrainer")
	defer func() { logOutcome(ctx, logger, err, "trainer created", "trainer_id", trainer.ID) }()

	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, parseErr := mail.ParseAddress(email); parseErr != nil {
		vErr.add("email", "email is invalid")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	trainer = persistence.Trainer{
		ID:        s.idGenerator(),
		Name:      name,
		Email:     email,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.store.CreateTrainer(ctx, trainer); err != nil {
		trainer = persistence.Trainer{}
		err = mapRepoError(err, "email")
	}
	return
}

// ListTrainers returns every trainer, active or not.
func (s *ResourceService) ListTrainers(ctx context.Context) ([]persistence.Trainer, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}
	return s.store.ListTrainers(ctx)
}

// SetTrainerActive activates or deactivates a trainer. Inactive trainers
// cannot be newly assigned; existing assignments are kept.
func (s *ResourceService) SetTrainerActive(ctx context.Context, trainerID string, active bool) (trainer persistence.Trainer, err error) {
	if s == nil {
		return persistence.Trainer{}, fmt.Errorf("ResourceService is nil")
	}
	logger := s.loggerWith(ctx, "SetTrainerActive", "trainer_id", trainerID, "active", active)
	defer func() { logOutcome(ctx, logger, err, "trainer updated") }()

	trainerID = strings.TrimSpace(trainerID)
	if err = s.store.SetTrainerActive(ctx, trainerID, active, s.now().UTC()); err != nil {
		err = mapRepoError(err, "trainer_id")
		return
	}
	trainers, err := s.store.GetTrainersByIDs(ctx, []string{trainerID})
	if err != nil {
		return
	}
	if len(trainers) == 0 {
		err = &NotFoundError{Entity: "trainer"}
		return
	}
	return trainers[0], nil
}

// CreateMobileUnit validates input and registers a mobile unit.
func (s *ResourceService) CreateMobileUnit(ctx context.Context, input MobileUnitInput) (unit persistence.MobileUnit, err error) {
	if s == nil {
		return persistence.MobileUnit{}, fmt.Errorf("ResourceService is nil")
	}
	logger := s.loggerWith(ctx, "CreateMobileUnit")
	defer func() { logOutcome(ctx, logger, err, "mobile unit created", "mobile_unit_id", unit.ID) }()

	vErr := &ValidationError{}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		vErr.add("name", "name is required")
	}
	plate := strings.ToUpper(strings.TrimSpace(input.Plate))
	if plate == "" {
		vErr.add("plate", "plate is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now().UTC()
	unit = persistence.MobileUnit{
		ID:        s.idGenerator(),
		Name:      name,
		Plate:     plate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.store.CreateMobileUnit(ctx, unit); err != nil {
		unit = persistence.MobileUnit{}
		err = mapRepoError(err, "plate")
	}
	return
}

// ListMobileUnits returns every mobile unit.
func (s *ResourceService) ListMobileUnits(ctx context.Context) ([]persistence.MobileUnit, error) {
	if s == nil {
		return nil, fmt.Errorf("ResourceService is nil")
	}
	return s.store.ListMobileUnits(ctx)
}
