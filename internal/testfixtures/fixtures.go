package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/training-erp/internal/persistence"
)

var (
	dealCounter       uint64
	lineCounter       uint64
	roomCounter       uint64
	trainerCounter    uint64
	mobileUnitCounter uint64
	sessionCounter    uint64
)

var referenceTime = time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Deal fixtures -----------------------------

// DealFixture is a deal with its product lines.
type DealFixture struct {
	Deal  persistence.Deal
	Lines []persistence.ProductLine
}

// DealOption configures the generated deal fixture.
type DealOption func(*DealFixture)

// NewDealFixture returns a deterministic deal with a default address and site.
func NewDealFixture(opts ...DealOption) DealFixture {
	idx := atomic.AddUint64(&dealCounter, 1)
	address := "Calle Mayor 1"
	site := "Madrid"
	fixture := DealFixture{
		Deal: persistence.Deal{
			ID:               fmt.Sprintf("deal-%03d", idx),
			Title:            fmt.Sprintf("Formación %03d", idx),
			OrganizationName: "Acme S.L.",
			DefaultAddress:   &address,
			DefaultSite:      &site,
			CreatedAt:        referenceTime,
			UpdatedAt:        referenceTime,
		},
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	for i := range fixture.Lines {
		fixture.Lines[i].DealID = fixture.Deal.ID
	}
	return fixture
}

// WithDealID overrides the deal identifier.
func WithDealID(id string) DealOption {
	return func(f *DealFixture) {
		f.Deal.ID = id
	}
}

// WithDealTitle overrides the deal title and organization.
func WithDealTitle(title, organization string) DealOption {
	return func(f *DealFixture) {
		f.Deal.Title = title
		f.Deal.OrganizationName = organization
	}
}

// WithoutDealDefaults clears the default address and site.
func WithoutDealDefaults() DealOption {
	return func(f *DealFixture) {
		f.Deal.DefaultAddress = nil
		f.Deal.DefaultSite = nil
	}
}

// WithLine appends a product line with the given code, quantity and hours.
func WithLine(code string, quantity, hours string) DealOption {
	return func(f *DealFixture) {
		f.Lines = append(f.Lines, NewLine(code, quantity, hours))
	}
}

// NewLine builds a product line; the deal id is filled in by NewDealFixture.
func NewLine(code string, quantity, hours string) persistence.ProductLine {
	idx := atomic.AddUint64(&lineCounter, 1)
	return persistence.ProductLine{
		ID:          fmt.Sprintf("line-%03d", idx),
		ProductCode: code,
		ProductName: "Curso " + code,
		Quantity:    decimal.RequireFromString(quantity),
		Hours:       decimal.RequireFromString(hours),
		CreatedAt:   referenceTime.Add(time.Duration(idx) * time.Millisecond),
	}
}

// --------------------------- Resource fixtures ---------------------------

// NewRoom returns a deterministic room.
func NewRoom() persistence.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	return persistence.Room{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Aula %03d", idx),
		Location:  "Planta 1",
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// NewTrainer returns a deterministic active trainer.
func NewTrainer() persistence.Trainer {
	idx := atomic.AddUint64(&trainerCounter, 1)
	return persistence.Trainer{
		ID:        fmt.Sprintf("trainer-%03d", idx),
		Name:      fmt.Sprintf("Formador %03d", idx),
		Email:     fmt.Sprintf("trainer%03d@example.com", idx),
		Active:    true,
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// NewMobileUnit returns a deterministic mobile unit.
func NewMobileUnit() persistence.MobileUnit {
	idx := atomic.AddUint64(&mobileUnitCounter, 1)
	return persistence.MobileUnit{
		ID:        fmt.Sprintf("unit-%03d", idx),
		Name:      fmt.Sprintf("Unidad %03d", idx),
		Plate:     fmt.Sprintf("%04d-TRN", idx),
		CreatedAt: referenceTime,
		UpdatedAt: referenceTime,
	}
}

// ---------------------------- Session fixtures ---------------------------

// SessionOption configures a session fixture.
type SessionOption func(*persistence.Session)

// NewSession returns an empty Draft session of the deal. Each call is created
// one second after the previous one so creation order is deterministic.
func NewSession(dealID string, opts ...SessionOption) persistence.Session {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Second)
	session := persistence.Session{
		ID:        fmt.Sprintf("session-%05d", idx),
		DealID:    dealID,
		Status:    persistence.StatusDraft,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&session)
	}
	return session
}

// WithSessionLine links the session to a product line.
func WithSessionLine(lineID string) SessionOption {
	return func(s *persistence.Session) {
		s.ProductLineID = &lineID
	}
}

// WithSessionStatus sets the stored status.
func WithSessionStatus(status persistence.SessionStatus) SessionOption {
	return func(s *persistence.Session) {
		s.Status = status
	}
}

// WithSessionTime sets start and end.
func WithSessionTime(start, end time.Time) SessionOption {
	return func(s *persistence.Session) {
		s.Start = &start
		s.End = &end
	}
}

// WithSessionRoom assigns a room.
func WithSessionRoom(roomID string) SessionOption {
	return func(s *persistence.Session) {
		s.RoomID = &roomID
	}
}

// WithSessionTrainers assigns trainers.
func WithSessionTrainers(ids ...string) SessionOption {
	return func(s *persistence.Session) {
		s.TrainerIDs = ids
	}
}

// WithSessionMobileUnits assigns mobile units.
func WithSessionMobileUnits(ids ...string) SessionOption {
	return func(s *persistence.Session) {
		s.MobileUnitIDs = ids
	}
}

// WithSessionPlace sets address and site.
func WithSessionPlace(address, site string) SessionOption {
	return func(s *persistence.Session) {
		s.Address = &address
		s.Site = &site
	}
}

// WithSessionComments sets free-text comments, which make a session non-empty.
func WithSessionComments(comments string) SessionOption {
	return func(s *persistence.Session) {
		s.Comments = &comments
	}
}

// WithSessionCreatedAt overrides the creation timestamp.
func WithSessionCreatedAt(t time.Time) SessionOption {
	return func(s *persistence.Session) {
		s.CreatedAt = t
		s.UpdatedAt = t
	}
}
