package persistence

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a training session. Values are the
// labels exchanged with the rest of the ERP.
type SessionStatus string

const (
	StatusDraft     SessionStatus = "Borrador"
	StatusScheduled SessionStatus = "Planificada"
	StatusSuspended SessionStatus = "Suspendido"
	StatusCancelled SessionStatus = "Cancelado"
)

// ActiveStatuses lists the statuses that occupy a room, trainer or mobile unit.
var ActiveStatuses = []SessionStatus{StatusDraft, StatusScheduled, StatusSuspended}

// IsActive reports whether sessions in this status take part in conflict detection.
func (s SessionStatus) IsActive() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

// IsManual reports whether the status is only ever set on request and never recomputed.
func (s SessionStatus) IsManual() bool {
	return s == StatusSuspended || s == StatusCancelled
}

// ParseSessionStatus validates a status label.
func ParseSessionStatus(value string) (SessionStatus, error) {
	switch SessionStatus(strings.TrimSpace(value)) {
	case StatusDraft:
		return StatusDraft, nil
	case StatusScheduled:
		return StatusScheduled, nil
	case StatusSuspended:
		return StatusSuspended, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown session status %q", value)
}

// Deal is the commercial agreement that owns training sessions.
type Deal struct {
	ID               string
	Title            string
	OrganizationName string
	DefaultAddress   *string
	DefaultSite      *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProductLine is one purchased item on a deal.
type ProductLine struct {
	ID          string
	DealID      string
	ProductCode string
	ProductName string
	Quantity    decimal.Decimal
	Hours       decimal.Decimal
	CreatedAt   time.Time
}

// Session is one planned or delivered training occurrence.
type Session struct {
	ID            string
	DealID        string
	ProductLineID *string
	Status        SessionStatus
	Start         *time.Time
	End           *time.Time
	RoomID        *string
	Address       *string
	Site          *string
	Comments      *string
	Origin        *string
	TrainerIDs    []string
	MobileUnitIDs []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsEmpty reports whether the session carries no planning data and can be
// removed without losing information. Any address counts as data, including
// one copied from the deal; site and origin do not.
func (s Session) IsEmpty() bool {
	return s.Start == nil &&
		s.End == nil &&
		isBlank(s.RoomID) &&
		isBlank(s.Address) &&
		isBlank(s.Comments) &&
		len(s.TrainerIDs) == 0 &&
		len(s.MobileUnitIDs) == 0
}

// IsComplete reports whether the session has everything required to be Scheduled.
func (s Session) IsComplete() bool {
	return s.Start != nil &&
		s.End != nil &&
		!isBlank(s.RoomID) &&
		len(s.TrainerIDs) > 0 &&
		!isBlank(s.Address) &&
		!isBlank(s.Site)
}

func isBlank(value *string) bool {
	return value == nil || strings.TrimSpace(*value) == ""
}

// Room is a physical training room.
type Room struct {
	ID        string
	Name      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Trainer is an instructor who can be assigned to sessions while active.
type Trainer struct {
	ID        string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MobileUnit is a vehicle or movable classroom assigned to on-site sessions.
type MobileUnit struct {
	ID        string
	Name      string
	Plate     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OverlapQuery selects active sessions overlapping [Start, End) for a set of resources.
type OverlapQuery struct {
	ResourceIDs      []string
	Start            time.Time
	End              time.Time
	ExcludeSessionID string
}

// SessionOverlap is an occupied slot of a resource, enriched with the owning deal.
type SessionOverlap struct {
	ResourceID       string
	SessionID        string
	DealID           string
	DealTitle        string
	OrganizationName string
	ProductCode      string
	ProductName      string
	Start            time.Time
	End              time.Time
}
