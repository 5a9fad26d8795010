package application

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/training-erp/internal/persistence"
)

// Optional is one field of a partial update. Set reports that the caller
// supplied the key; Null that it was supplied as an explicit null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a supplied, non-null field.
func Some[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: value}
}

// Null returns a field supplied as an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// HasValue reports whether the field carries a non-null value.
func (o Optional[T]) HasValue() bool {
	return o.Set && !o.Null
}

// SessionPatch carries the session fields supplied by a create or update
// request. Timestamps and status arrive as raw strings and are parsed by the
// service so every problem is reported as a field error.
type SessionPatch struct {
	ProductLineID Optional[string]
	Status        Optional[string]
	Start         Optional[string]
	End           Optional[string]
	RoomID        Optional[string]
	Address       Optional[string]
	Site          Optional[string]
	Comments      Optional[string]
	TrainerIDs    Optional[[]string]
	MobileUnitIDs Optional[[]string]
}

// Expand selects the related records included in a session view.
type Expand struct {
	ProductLine bool
	Room        bool
	Trainers    bool
	MobileUnits bool
}

// ParseExpand reads expand values, each of which may itself be a comma
// separated list. "resources" selects room, trainers and mobile units.
func ParseExpand(values []string) (Expand, error) {
	var expand Expand
	var unknown []string
	for _, value := range values {
		for _, key := range strings.Split(value, ",") {
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "":
			case "product_line":
				expand.ProductLine = true
			case "room":
				expand.Room = true
			case "trainers":
				expand.Trainers = true
			case "mobile_units":
				expand.MobileUnits = true
			case "resources":
				expand.Room = true
				expand.Trainers = true
				expand.MobileUnits = true
			default:
				unknown = append(unknown, strings.TrimSpace(key))
			}
		}
	}
	if len(unknown) > 0 {
		return Expand{}, newValidationError("expand", "unknown expand keys: "+joinIDs(unknown))
	}
	return expand, nil
}

// CreateSessionParams wraps the inputs for creating a session under a deal.
type CreateSessionParams struct {
	DealID string
	Input  SessionPatch
	Expand Expand
}

// UpdateSessionParams wraps the inputs for patching a session.
type UpdateSessionParams struct {
	SessionID string
	Input     SessionPatch
	Expand    Expand
}

// ListSessionsParams filters a deal's sessions. Status is the raw status
// label and may be empty.
type ListSessionsParams struct {
	DealID string
	Status string
	Expand Expand
}

// ProductLineView is a product line with its planning attributes.
type ProductLineView struct {
	persistence.ProductLine
	Plannable        bool
	RequiredSessions int
}

// SessionView is the presentation of a session. Related records are only
// populated when requested through Expand.
type SessionView struct {
	persistence.Session
	IsEmpty             bool
	IsExceedingQuantity bool

	ProductLine *ProductLineView
	Room        *persistence.Room
	Trainers    []persistence.Trainer
	MobileUnits []persistence.MobileUnit
}

// DealInput describes a deal registered with its product lines.
type DealInput struct {
	ID               string
	Title            string
	OrganizationName string
	DefaultAddress   *string
	DefaultSite      *string
	Lines            []ProductLineInput
}

// ProductLineInput is one purchased item. Quantity and Hours are decimal strings.
type ProductLineInput struct {
	ID          string
	ProductCode string
	ProductName string
	Quantity    string
	Hours       string
}

// DealView is a deal with its product lines and session count.
type DealView struct {
	persistence.Deal
	Lines        []ProductLineView
	SessionCount int
}

// RoomInput describes a room to register.
type RoomInput struct {
	Name     string
	Location string
}

// TrainerInput describes a trainer to register.
type TrainerInput struct {
	Name  string
	Email string
}

// MobileUnitInput describes a mobile unit to register.
type MobileUnitInput struct {
	Name  string
	Plate string
}

var msPerHour = decimal.NewFromInt(int64(time.Hour / time.Millisecond))

// hoursToDuration converts product hours with millisecond precision. Hours
// outside (0, maxLineHours] give zero, so no end is derived from them.
func hoursToDuration(hours decimal.Decimal) time.Duration {
	if !hours.IsPositive() || hours.GreaterThan(maxLineHours) {
		return 0
	}
	return time.Duration(hours.Mul(msPerHour).Round(0).IntPart()) * time.Millisecond
}
