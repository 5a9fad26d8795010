package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/training-erp/internal/persistence"
)

// ResourceKind names the kind of resource a session can hold.
type ResourceKind string

const (
	// KindRoom is a physical room referenced by sessions.room_id.
	KindRoom ResourceKind = "room"
	// KindTrainer is a trainer linked through session_trainers.
	KindTrainer ResourceKind = "trainer"
	// KindMobileUnit is a mobile unit linked through session_mobile_units.
	KindMobileUnit ResourceKind = "mobile_unit"
)

// Range is a half-open time interval [Start, End).
type Range struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the range is non-empty.
func (r Range) Valid() bool {
	return r.Start.Before(r.End)
}

// Overlaps reports whether two half-open ranges share any instant. Ranges
// that only touch at an endpoint do not overlap.
func (r Range) Overlaps(other Range) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// ConflictDetail describes one active session already holding a resource.
type ConflictDetail struct {
	SessionID        string
	DealID           string
	DealTitle        string
	OrganizationName string
	ProductCode      string
	ProductName      string
	Start            time.Time
	End              time.Time
}

// Conflict groups the overlapping sessions found for one resource.
type Conflict struct {
	Kind       ResourceKind
	ResourceID string
	Details    []ConflictDetail
}

// OverlapQuerier runs the overlap lookups against the pool or a transaction.
type OverlapQuerier interface {
	RoomOverlaps(ctx context.Context, query persistence.OverlapQuery) ([]persistence.SessionOverlap, error)
	TrainerOverlaps(ctx context.Context, query persistence.OverlapQuery) ([]persistence.SessionOverlap, error)
	MobileUnitOverlaps(ctx context.Context, query persistence.OverlapQuery) ([]persistence.SessionOverlap, error)
}

// Request lists the resources a session is about to hold during Range.
type Request struct {
	RoomIDs          []string
	TrainerIDs       []string
	MobileUnitIDs    []string
	Range            Range
	ExcludeSessionID string
}

// Finder detects resources committed to overlapping active sessions.
type Finder struct {
	parallelism int
}

// NewFinder creates a finder running up to parallelism lookups at once.
func NewFinder(parallelism int) *Finder {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Finder{parallelism: parallelism}
}

// Sequential returns a finder that issues one lookup at a time, as required
// when the querier is a single transaction.
func (f *Finder) Sequential() *Finder {
	return &Finder{parallelism: 1}
}

// FindConflicts returns, per resource id with at least one overlap, the active
// sessions that hold it during rng. The caller guarantees rng is valid.
func (f *Finder) FindConflicts(ctx context.Context, q OverlapQuerier, kind ResourceKind, ids []string, rng Range, exclude string) (map[string][]ConflictDetail, error) {
	ids = uniqueIDs(ids)
	conflicts := make(map[string][]ConflictDetail)
	if len(ids) == 0 {
		return conflicts, nil
	}

	query := persistence.OverlapQuery{
		ResourceIDs:      ids,
		Start:            rng.Start,
		End:              rng.End,
		ExcludeSessionID: exclude,
	}

	var (
		overlaps []persistence.SessionOverlap
		err      error
	)
	switch kind {
	case KindRoom:
		overlaps, err = q.RoomOverlaps(ctx, query)
	case KindTrainer:
		overlaps, err = q.TrainerOverlaps(ctx, query)
	case KindMobileUnit:
		overlaps, err = q.MobileUnitOverlaps(ctx, query)
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("find %s conflicts: %w", kind, err)
	}

	for _, overlap := range overlaps {
		conflicts[overlap.ResourceID] = append(conflicts[overlap.ResourceID], ConflictDetail{
			SessionID:        overlap.SessionID,
			DealID:           overlap.DealID,
			DealTitle:        overlap.DealTitle,
			OrganizationName: overlap.OrganizationName,
			ProductCode:      overlap.ProductCode,
			ProductName:      overlap.ProductName,
			Start:            overlap.Start,
			End:              overlap.End,
		})
	}
	return conflicts, nil
}

// FindAll checks rooms, trainers and mobile units of the request and returns
// the conflicts ordered room first, then trainers, then mobile units, each in
// request order.
func (f *Finder) FindAll(ctx context.Context, q OverlapQuerier, req Request) ([]Conflict, error) {
	lookups := []struct {
		kind ResourceKind
		ids  []string
	}{
		{kind: KindRoom, ids: uniqueIDs(req.RoomIDs)},
		{kind: KindTrainer, ids: uniqueIDs(req.TrainerIDs)},
		{kind: KindMobileUnit, ids: uniqueIDs(req.MobileUnitIDs)},
	}
	results := make([]map[string][]ConflictDetail, len(lookups))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(f.parallelism)
	for i, lookup := range lookups {
		if len(lookup.ids) == 0 {
			continue
		}
		group.Go(func() error {
			found, err := f.FindConflicts(groupCtx, q, lookup.kind, lookup.ids, req.Range, req.ExcludeSessionID)
			if err != nil {
				return err
			}
			results[i] = found
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var conflicts []Conflict
	for i, lookup := range lookups {
		for _, id := range lookup.ids {
			if details := results[i][id]; len(details) > 0 {
				conflicts = append(conflicts, Conflict{Kind: lookup.kind, ResourceID: id, Details: details})
			}
		}
	}
	return conflicts, nil
}

func uniqueIDs(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
