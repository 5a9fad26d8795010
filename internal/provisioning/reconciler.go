package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/example/training-erp/internal/persistence"
)

// SyncResult reports what Sync changed and the deal's final session count.
type SyncResult struct {
	Created      []string
	Deleted      []string
	Flagged      []string
	SessionCount int
}

// Reconciler computes and applies plans against the store.
type Reconciler struct {
	store       persistence.Store
	rules       Rules
	idGenerator func() string
	now         func() time.Time
}

// NewReconciler wires a reconciler. idGenerator and now are injected so tests
// stay deterministic.
func NewReconciler(store persistence.Store, rules Rules, idGenerator func() string, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		store:       store,
		rules:       rules,
		idGenerator: idGenerator,
		now:         now,
	}
}

// Rules returns the plannable product rules in use.
func (r *Reconciler) Rules() Rules {
	return r.rules
}

// Reconcile computes the plan for a deal without changing anything.
func (r *Reconciler) Reconcile(ctx context.Context, dealID string) (Plan, error) {
	_, lines, sessions, err := r.load(ctx, r.store, dealID)
	if err != nil {
		return Plan{}, err
	}
	return Compute(r.rules.PlannableLines(lines), StatesFor(sessions)), nil
}

// PlanFor computes the plan from already loaded records.
func (r *Reconciler) PlanFor(lines []persistence.ProductLine, sessions []persistence.Session) Plan {
	return Compute(r.rules.PlannableLines(lines), StatesFor(sessions))
}

// Sync applies the deal's plan in one write transaction: deletions first,
// then creations.
func (r *Reconciler) Sync(ctx context.Context, dealID string) (SyncResult, error) {
	var result SyncResult

	err := r.store.WithinTx(ctx, func(q persistence.Queries) error {
		result = SyncResult{}

		deal, lines, sessions, err := r.load(ctx, q, dealID)
		if err != nil {
			return err
		}

		plannable := r.rules.PlannableLines(lines)
		if len(plannable) == 0 {
			result.SessionCount = len(sessions)
			return nil
		}

		plan := Compute(plannable, StatesFor(sessions))
		result.Flagged = plan.ToFlag

		if len(plan.ToDelete) > 0 {
			if _, err := q.DeleteSessions(ctx, plan.ToDelete); err != nil {
				return fmt.Errorf("delete excess sessions: %w", err)
			}
			result.Deleted = plan.ToDelete
		}

		now := r.now().UTC()
		for _, creation := range plan.ToCreate {
			for i := 0; i < creation.Count; i++ {
				session := newEmptySession(r.idGenerator(), deal, creation.Line, now)
				if err := q.CreateSession(ctx, session); err != nil {
					return fmt.Errorf("create session for line %s: %w", creation.Line.ID, err)
				}
				result.Created = append(result.Created, session.ID)
			}
		}

		count, err := q.CountSessionsByDeal(ctx, dealID)
		if err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}
		result.SessionCount = count
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	return result, nil
}

func (r *Reconciler) load(ctx context.Context, q persistence.Queries, dealID string) (persistence.Deal, []persistence.ProductLine, []persistence.Session, error) {
	deal, err := q.GetDeal(ctx, dealID)
	if err != nil {
		return persistence.Deal{}, nil, nil, fmt.Errorf("load deal %s: %w", dealID, err)
	}
	lines, err := q.ListProductLines(ctx, dealID)
	if err != nil {
		return persistence.Deal{}, nil, nil, fmt.Errorf("load product lines: %w", err)
	}
	sessions, err := q.ListSessionsByDeal(ctx, dealID)
	if err != nil {
		return persistence.Deal{}, nil, nil, fmt.Errorf("load sessions: %w", err)
	}
	return deal, lines, sessions, nil
}

func newEmptySession(id string, deal persistence.Deal, line persistence.ProductLine, now time.Time) persistence.Session {
	lineID := line.ID
	origin := line.ProductCode
	return persistence.Session{
		ID:            id,
		DealID:        deal.ID,
		ProductLineID: &lineID,
		Status:        persistence.StatusDraft,
		Address:       copyString(deal.DefaultAddress),
		Site:          copyString(deal.DefaultSite),
		Origin:        &origin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func copyString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
