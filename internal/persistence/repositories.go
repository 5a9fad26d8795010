package persistence

import (
	"context"
	"time"
)

// DealRepository exposes deal and product line records.
type DealRepository interface {
	CreateDeal(ctx context.Context, deal Deal, lines []ProductLine) error
	GetDeal(ctx context.Context, id string) (Deal, error)
	ListDeals(ctx context.Context) ([]Deal, error)
	DeleteDeal(ctx context.Context, id string) error
	ListProductLines(ctx context.Context, dealID string) ([]ProductLine, error)
}

// ResourceRepository exposes rooms, trainers and mobile units.
type ResourceRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoomsByIDs(ctx context.Context, ids []string) ([]Room, error)

	CreateTrainer(ctx context.Context, trainer Trainer) error
	ListTrainers(ctx context.Context) ([]Trainer, error)
	GetTrainersByIDs(ctx context.Context, ids []string) ([]Trainer, error)
	SetTrainerActive(ctx context.Context, id string, active bool, updatedAt time.Time) error

	CreateMobileUnit(ctx context.Context, unit MobileUnit) error
	ListMobileUnits(ctx context.Context) ([]MobileUnit, error)
	GetMobileUnitsByIDs(ctx context.Context, ids []string) ([]MobileUnit, error)
}

// SessionRepository stores sessions together with their trainer and mobile unit links.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	UpdateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	// ListSessionsByDeal returns the deal's sessions ordered by creation time, then id.
	ListSessionsByDeal(ctx context.Context, dealID string) ([]Session, error)
	CountSessionsByDeal(ctx context.Context, dealID string) (int, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessions(ctx context.Context, ids []string) (int, error)
}

// OverlapRepository runs the time-range overlap lookups used for conflict detection.
type OverlapRepository interface {
	RoomOverlaps(ctx context.Context, query OverlapQuery) ([]SessionOverlap, error)
	TrainerOverlaps(ctx context.Context, query OverlapQuery) ([]SessionOverlap, error)
	MobileUnitOverlaps(ctx context.Context, query OverlapQuery) ([]SessionOverlap, error)
}

// Queries is the full set of operations available on a store or inside a transaction.
type Queries interface {
	DealRepository
	ResourceRepository
	SessionRepository
	OverlapRepository
}

// Store is the transactional relational store the services run against.
type Store interface {
	Queries
	// WithinTx runs fn inside one serialized write transaction. Returning an
	// error from fn rolls every write back.
	WithinTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}
