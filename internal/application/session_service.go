package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/example/training-erp/internal/events"
	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/provisioning"
	"github.com/example/training-erp/internal/scheduler"
)

// errLateConflict aborts the write transaction when the in-transaction
// re-check finds a conflict the pre-check did not.
var errLateConflict = errors.New("application: conflict detected inside transaction")

// SessionServiceDeps groups the collaborators of SessionService.
type SessionServiceDeps struct {
	Store       persistence.Store
	Reconciler  *provisioning.Reconciler
	Finder      *scheduler.Finder
	Publisher   events.Publisher
	IDGenerator func() string
	Now         func() time.Time
	Location    *time.Location
	Logger      *slog.Logger
}

// SessionService validates, schedules and presents training sessions.
type SessionService struct {
	store       persistence.Store
	reconciler  *provisioning.Reconciler
	finder      *scheduler.Finder
	publisher   events.Publisher
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	logger      *slog.Logger
}

// NewSessionService wires dependencies for session operations.
func NewSessionService(deps SessionServiceDeps) *SessionService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = NewID
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.Finder == nil {
		deps.Finder = scheduler.NewFinder(3)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	if deps.Reconciler == nil {
		deps.Reconciler = provisioning.NewReconciler(deps.Store, provisioning.DefaultRules(), deps.IDGenerator, deps.Now)
	}
	return &SessionService{
		store:       deps.Store,
		reconciler:  deps.Reconciler,
		finder:      deps.Finder,
		publisher:   deps.Publisher,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		location:    deps.Location,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates the request, checks resource availability and
// stores a new session under the deal.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (view SessionView, err error) {
	if s == nil {
		return SessionView{}, fmt.Errorf("SessionService is nil")
	}
	ctx, span := startSpan(ctx, "SessionService.CreateSession", attribute.String("deal.id", params.DealID))
	logger := s.loggerWith(ctx, "CreateSession", "deal_id", params.DealID)
	defer func() {
		logOutcome(ctx, logger, err, "session created", "session_id", view.ID, "status", view.Status)
		finishSpan(span, err)
	}()

	dealID := strings.TrimSpace(params.DealID)
	if dealID == "" {
		err = newValidationError("deal_id", "deal_id is required")
		return
	}

	deal, lines, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return
	}

	now := s.now().UTC()
	draft := persistence.Session{
		ID:        s.idGenerator(),
		DealID:    deal.ID,
		Status:    persistence.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	candidate, err := s.resolve(ctx, deal, lines, draft, params.Input, true)
	if err != nil {
		return
	}

	err = s.write(ctx, candidate, "", func(q persistence.Queries) error {
		return q.CreateSession(ctx, candidate)
	})
	if err != nil {
		return
	}

	view, err = s.sessionView(ctx, candidate.ID, params.Expand)
	if err != nil {
		return
	}

	publishEvent(ctx, s.publisher, logger, events.Event{
		Type:       events.SessionCreated,
		DealID:     view.DealID,
		SessionID:  view.ID,
		OccurredAt: s.now().UTC(),
		Data:       sessionEventData(view.Session),
	})
	return
}

// UpdateSession applies a partial update. Only supplied fields change;
// trainers and mobile units are replaced as a whole when supplied.
func (s *SessionService) UpdateSession(ctx context.Context, params UpdateSessionParams) (view SessionView, err error) {
	if s == nil {
		return SessionView{}, fmt.Errorf("SessionService is nil")
	}
	ctx, span := startSpan(ctx, "SessionService.UpdateSession", attribute.String("session.id", params.SessionID))
	logger := s.loggerWith(ctx, "UpdateSession", "session_id", params.SessionID)
	defer func() {
		logOutcome(ctx, logger, err, "session updated", "status", view.Status)
		finishSpan(span, err)
	}()

	sessionID := strings.TrimSpace(params.SessionID)
	if sessionID == "" {
		err = newValidationError("session_id", "session id is required")
		return
	}

	current, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		err = mapRepoError(err, "session_id")
		return
	}

	deal, lines, err := s.loadDeal(ctx, current.DealID)
	if err != nil {
		return
	}

	candidate, err := s.resolve(ctx, deal, lines, current, params.Input, false)
	if err != nil {
		return
	}

	err = s.write(ctx, candidate, candidate.ID, func(q persistence.Queries) error {
		return q.UpdateSession(ctx, candidate)
	})
	if err != nil {
		return
	}

	view, err = s.sessionView(ctx, candidate.ID, params.Expand)
	if err != nil {
		return
	}

	data := sessionEventData(view.Session)
	data["previous_status"] = current.Status
	publishEvent(ctx, s.publisher, logger, events.Event{
		Type:       events.SessionUpdated,
		DealID:     view.DealID,
		SessionID:  view.ID,
		OccurredAt: s.now().UTC(),
		Data:       data,
	})
	return
}

// DeleteSession removes a session and its trainer and mobile unit links.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID string) (err error) {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}
	ctx, span := startSpan(ctx, "SessionService.DeleteSession", attribute.String("session.id", sessionID))
	logger := s.loggerWith(ctx, "DeleteSession", "session_id", sessionID)
	defer func() {
		logOutcome(ctx, logger, err, "session deleted")
		finishSpan(span, err)
	}()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		err = newValidationError("session_id", "session id is required")
		return
	}

	var deleted persistence.Session
	err = s.store.WithinTx(ctx, func(q persistence.Queries) error {
		session, err := q.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		deleted = session
		return q.DeleteSession(ctx, sessionID)
	})
	if err != nil {
		err = mapRepoError(err, "session_id")
		return
	}

	publishEvent(ctx, s.publisher, logger, events.Event{
		Type:       events.SessionDeleted,
		DealID:     deleted.DealID,
		SessionID:  deleted.ID,
		OccurredAt: s.now().UTC(),
		Data:       sessionEventData(deleted),
	})
	return nil
}

// GetSession returns one session. Quantity flags are not computed for single
// reads, so IsExceedingQuantity is always false.
func (s *SessionService) GetSession(ctx context.Context, sessionID string, expand Expand) (view SessionView, err error) {
	if s == nil {
		return SessionView{}, fmt.Errorf("SessionService is nil")
	}
	ctx, span := startSpan(ctx, "SessionService.GetSession", attribute.String("session.id", sessionID))
	defer func() { finishSpan(span, err) }()

	return s.sessionView(ctx, strings.TrimSpace(sessionID), expand)
}

// ListSessions returns a deal's sessions in creation order, flagged against
// the deal's purchased quantities, optionally filtered by status.
func (s *SessionService) ListSessions(ctx context.Context, params ListSessionsParams) (views []SessionView, err error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	ctx, span := startSpan(ctx, "SessionService.ListSessions", attribute.String("deal.id", params.DealID))
	logger := s.loggerWith(ctx, "ListSessions", "deal_id", params.DealID)
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "")
		}
		finishSpan(span, err)
	}()

	dealID := strings.TrimSpace(params.DealID)
	if dealID == "" {
		err = newValidationError("deal_id", "deal_id is required")
		return
	}

	var statusFilter persistence.SessionStatus
	if strings.TrimSpace(params.Status) != "" {
		statusFilter, err = persistence.ParseSessionStatus(params.Status)
		if err != nil {
			err = newValidationError("estado", fmt.Sprintf("unknown status %q", params.Status))
			return
		}
	}

	_, lines, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return
	}

	sessions, err := s.store.ListSessionsByDeal(ctx, dealID)
	if err != nil {
		return
	}

	// The plan covers every session of the deal; the filter applies afterwards.
	plan := s.reconciler.PlanFor(lines, sessions)

	if statusFilter != "" {
		filtered := sessions[:0:0]
		for _, session := range sessions {
			if session.Status == statusFilter {
				filtered = append(filtered, session)
			}
		}
		sessions = filtered
	}

	return s.present(ctx, lines, sessions, plan, params.Expand)
}

// SyncDealSessions reconciles the deal's sessions with its purchased quantities.
func (s *SessionService) SyncDealSessions(ctx context.Context, dealID string) (result provisioning.SyncResult, err error) {
	if s == nil {
		return provisioning.SyncResult{}, fmt.Errorf("SessionService is nil")
	}
	ctx, span := startSpan(ctx, "SessionService.SyncDealSessions", attribute.String("deal.id", dealID))
	logger := s.loggerWith(ctx, "SyncDealSessions", "deal_id", dealID)
	defer func() {
		logOutcome(ctx, logger, err, "deal sessions synced",
			"created", len(result.Created),
			"deleted", len(result.Deleted),
			"flagged", len(result.Flagged),
			"session_count", result.SessionCount,
		)
		finishSpan(span, err)
	}()

	dealID = strings.TrimSpace(dealID)
	if dealID == "" {
		err = newValidationError("deal_id", "deal_id is required")
		return
	}

	result, err = s.reconciler.Sync(ctx, dealID)
	if err != nil {
		err = mapRepoError(err, "deal_id")
		return
	}

	if len(result.Created) > 0 || len(result.Deleted) > 0 {
		publishEvent(ctx, s.publisher, logger, events.Event{
			Type:       events.DealSessionsSynced,
			DealID:     dealID,
			OccurredAt: s.now().UTC(),
			Data: map[string]any{
				"created":       result.Created,
				"deleted":       result.Deleted,
				"flagged":       result.Flagged,
				"session_count": result.SessionCount,
			},
		})
	}
	return
}

// PlanDealSessions computes the reconciliation plan without applying it.
func (s *SessionService) PlanDealSessions(ctx context.Context, dealID string) (plan provisioning.Plan, err error) {
	if s == nil {
		return provisioning.Plan{}, fmt.Errorf("SessionService is nil")
	}
	ctx, span := startSpan(ctx, "SessionService.PlanDealSessions", attribute.String("deal.id", dealID))
	defer func() { finishSpan(span, err) }()

	plan, err = s.reconciler.Reconcile(ctx, strings.TrimSpace(dealID))
	if err != nil {
		err = mapRepoError(err, "deal_id")
	}
	return
}

func (s *SessionService) loadDeal(ctx context.Context, dealID string) (persistence.Deal, []persistence.ProductLine, error) {
	deal, err := s.store.GetDeal(ctx, dealID)
	if err != nil {
		return persistence.Deal{}, nil, mapRepoError(err, "deal_id")
	}
	lines, err := s.store.ListProductLines(ctx, dealID)
	if err != nil {
		return persistence.Deal{}, nil, err
	}
	return deal, lines, nil
}

// resolve applies the patch to current and validates the result. Every
// problem is collected into one ValidationError; nothing is written.
func (s *SessionService) resolve(ctx context.Context, deal persistence.Deal, lines []persistence.ProductLine, current persistence.Session, patch SessionPatch, creating bool) (persistence.Session, error) {
	vErr := &ValidationError{}

	next := current
	next.TrainerIDs = slices.Clone(current.TrainerIDs)
	next.MobileUnitIDs = slices.Clone(current.MobileUnitIDs)

	line, hasLine := s.resolveProductLine(lines, current, patch.ProductLineID, creating, vErr)
	if hasLine {
		id := line.ID
		next.ProductLineID = &id
	} else if !creating && patch.ProductLineID.Set &&
		(patch.ProductLineID.Null || strings.TrimSpace(patch.ProductLineID.Value) == "") {
		next.ProductLineID = nil
	}

	timesParsed := true
	if patch.Start.Set {
		start, ok := s.parseOptionalTime("start", patch.Start, vErr)
		next.Start = start
		timesParsed = timesParsed && ok
	}
	if patch.End.Set {
		end, ok := s.parseOptionalTime("end", patch.End, vErr)
		next.End = end
		timesParsed = timesParsed && ok
	}
	if patch.Start.Set && next.Start != nil && !patch.End.Set && hasLine {
		if duration := hoursToDuration(line.Hours); duration > 0 {
			end := next.Start.Add(duration)
			next.End = &end
		}
	}
	if timesParsed && next.Start != nil && next.End != nil && !next.End.After(*next.Start) {
		vErr.add("end", "end must be after start")
	}

	applyText(&next.Address, patch.Address)
	applyText(&next.Site, patch.Site)
	applyText(&next.Comments, patch.Comments)

	if patch.RoomID.Set {
		next.RoomID = nil
		if id := strings.TrimSpace(patch.RoomID.Value); patch.RoomID.HasValue() && id != "" {
			next.RoomID = &id
		}
	}
	if patch.TrainerIDs.Set {
		ids, ok := cleanIDs(patch.TrainerIDs.Value)
		if !ok {
			vErr.add("trainer_ids", "ids must not be empty")
		}
		next.TrainerIDs = ids
	}
	if patch.MobileUnitIDs.Set {
		ids, ok := cleanIDs(patch.MobileUnitIDs.Value)
		if !ok {
			vErr.add("mobile_unit_ids", "ids must not be empty")
		}
		next.MobileUnitIDs = ids
	}

	var explicit *persistence.SessionStatus
	if patch.Status.HasValue() && strings.TrimSpace(patch.Status.Value) != "" {
		status, err := persistence.ParseSessionStatus(patch.Status.Value)
		if err != nil {
			vErr.add("status", fmt.Sprintf("unknown status %q", patch.Status.Value))
		} else {
			explicit = &status
		}
	}

	if err := s.validateResources(ctx, next, patch, vErr); err != nil {
		return persistence.Session{}, err
	}

	status, err := nextStatus(current.Status, explicit, next.IsComplete())
	if err != nil {
		vErr.merge(err)
	}
	next.Status = status

	if vErr.HasErrors() {
		return persistence.Session{}, vErr
	}

	next.UpdatedAt = s.now().UTC()
	return next, nil
}

// resolveProductLine picks the session's line: an explicit id that belongs to
// the deal, else the current line, else on create the deal's only plannable line.
func (s *SessionService) resolveProductLine(lines []persistence.ProductLine, current persistence.Session, field Optional[string], creating bool, vErr *ValidationError) (persistence.ProductLine, bool) {
	if field.HasValue() && strings.TrimSpace(field.Value) != "" {
		id := strings.TrimSpace(field.Value)
		for _, line := range lines {
			if line.ID == id {
				return line, true
			}
		}
		vErr.add("product_line_id", "product line does not belong to the deal")
		return persistence.ProductLine{}, false
	}

	if !creating {
		if field.Set {
			return persistence.ProductLine{}, false
		}
		if current.ProductLineID != nil {
			for _, line := range lines {
				if line.ID == *current.ProductLineID {
					return line, true
				}
			}
		}
		return persistence.ProductLine{}, false
	}

	plannable := s.reconciler.Rules().PlannableLines(lines)
	if len(plannable) == 1 {
		return plannable[0], true
	}
	vErr.add("product_line_id", "product_line_id is required")
	return persistence.ProductLine{}, false
}

func (s *SessionService) parseOptionalTime(field string, value Optional[string], vErr *ValidationError) (*time.Time, bool) {
	if !value.HasValue() || strings.TrimSpace(value.Value) == "" {
		return nil, true
	}
	t, err := parseTimestamp(value.Value, s.location)
	if err != nil {
		vErr.add(field, "must be an ISO-8601 timestamp")
		return nil, false
	}
	return &t, true
}

// validateResources checks the resources supplied by the patch. Unchanged
// assignments are not re-validated.
func (s *SessionService) validateResources(ctx context.Context, next persistence.Session, patch SessionPatch, vErr *ValidationError) error {
	if patch.RoomID.HasValue() && next.RoomID != nil {
		rooms, err := s.store.GetRoomsByIDs(ctx, []string{*next.RoomID})
		if err != nil {
			return err
		}
		if len(rooms) == 0 {
			vErr.add("room_id", "room does not exist")
		}
	}

	if patch.TrainerIDs.HasValue() && len(next.TrainerIDs) > 0 {
		trainers, err := s.store.GetTrainersByIDs(ctx, next.TrainerIDs)
		if err != nil {
			return err
		}
		found := make(map[string]persistence.Trainer, len(trainers))
		for _, trainer := range trainers {
			found[trainer.ID] = trainer
		}
		var missing, inactive []string
		for _, id := range next.TrainerIDs {
			trainer, ok := found[id]
			switch {
			case !ok:
				missing = append(missing, id)
			case !trainer.Active:
				inactive = append(inactive, id)
			}
		}
		var problems []string
		if len(missing) > 0 {
			problems = append(problems, "unknown trainers: "+joinIDs(missing))
		}
		if len(inactive) > 0 {
			problems = append(problems, "inactive trainers: "+joinIDs(inactive))
		}
		if len(problems) > 0 {
			vErr.add("trainer_ids", strings.Join(problems, "; "))
		}
	}

	if patch.MobileUnitIDs.HasValue() && len(next.MobileUnitIDs) > 0 {
		units, err := s.store.GetMobileUnitsByIDs(ctx, next.MobileUnitIDs)
		if err != nil {
			return err
		}
		found := make(map[string]struct{}, len(units))
		for _, unit := range units {
			found[unit.ID] = struct{}{}
		}
		var missing []string
		for _, id := range next.MobileUnitIDs {
			if _, ok := found[id]; !ok {
				missing = append(missing, id)
			}
		}
		if len(missing) > 0 {
			vErr.add("mobile_unit_ids", "unknown mobile units: "+joinIDs(missing))
		}
	}
	return nil
}

// nextStatus applies the status rules: an explicit status wins, Scheduled
// only when complete; otherwise Suspended and Cancelled stick and Draft and
// Scheduled follow completeness.
func nextStatus(current persistence.SessionStatus, explicit *persistence.SessionStatus, complete bool) (persistence.SessionStatus, *ValidationError) {
	if explicit != nil {
		if *explicit == persistence.StatusScheduled && !complete {
			return current, newValidationError("status", "session is incomplete: start, end, room, at least one trainer, address and site are required")
		}
		return *explicit, nil
	}
	if current.IsManual() {
		return current, nil
	}
	if complete {
		return persistence.StatusScheduled, nil
	}
	return persistence.StatusDraft, nil
}

// write checks availability against the pool, then re-checks and persists
// inside one immediate transaction so a concurrent booking cannot slip in
// between check and commit.
func (s *SessionService) write(ctx context.Context, candidate persistence.Session, exclude string, persist func(q persistence.Queries) error) error {
	req, check := conflictRequest(candidate, exclude)
	if check {
		conflicts, err := s.finder.FindAll(ctx, s.store, req)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return s.conflictError(ctx, conflicts)
		}
	}

	var late []scheduler.Conflict
	err := s.store.WithinTx(ctx, func(q persistence.Queries) error {
		late = nil
		if check {
			conflicts, err := s.finder.Sequential().FindAll(ctx, q, req)
			if err != nil {
				return err
			}
			if len(conflicts) > 0 {
				late = conflicts
				return errLateConflict
			}
		}
		return persist(q)
	})
	if errors.Is(err, errLateConflict) {
		return s.conflictError(ctx, late)
	}
	if err != nil {
		return mapRepoError(err, "session")
	}
	return nil
}

// conflictRequest lists the resources the candidate will hold. Sessions
// without a valid range, without resources or cancelled hold nothing.
func conflictRequest(candidate persistence.Session, exclude string) (scheduler.Request, bool) {
	if candidate.Start == nil || candidate.End == nil || !candidate.Status.IsActive() {
		return scheduler.Request{}, false
	}
	rng := scheduler.Range{Start: *candidate.Start, End: *candidate.End}
	if !rng.Valid() {
		return scheduler.Request{}, false
	}
	req := scheduler.Request{
		TrainerIDs:       candidate.TrainerIDs,
		MobileUnitIDs:    candidate.MobileUnitIDs,
		Range:            rng,
		ExcludeSessionID: exclude,
	}
	if candidate.RoomID != nil {
		req.RoomIDs = []string{*candidate.RoomID}
	}
	if len(req.RoomIDs) == 0 && len(req.TrainerIDs) == 0 && len(req.MobileUnitIDs) == 0 {
		return scheduler.Request{}, false
	}
	return req, true
}

func (s *SessionService) conflictError(ctx context.Context, conflicts []scheduler.Conflict) *ConflictError {
	return &ConflictError{
		Conflicts: conflicts,
		Summary:   s.conflictSummary(ctx, conflicts[0]),
	}
}

// conflictSummary describes the first overlapping session of a conflict in Spanish.
func (s *SessionService) conflictSummary(ctx context.Context, conflict scheduler.Conflict) string {
	name := s.resourceName(ctx, conflict.Kind, conflict.ResourceID)

	var subject string
	switch conflict.Kind {
	case scheduler.KindRoom:
		subject = fmt.Sprintf("El aula %s ya está ocupada", name)
	case scheduler.KindTrainer:
		subject = fmt.Sprintf("El formador %s ya está asignado", name)
	default:
		subject = fmt.Sprintf("La unidad móvil %s ya está asignada", name)
	}
	if len(conflict.Details) == 0 {
		return subject + "."
	}

	detail := conflict.Details[0]
	counterpart := detail.DealTitle
	if detail.OrganizationName != "" {
		counterpart = fmt.Sprintf("%s (%s)", detail.DealTitle, detail.OrganizationName)
	}
	return fmt.Sprintf("%s en «%s» %s.", subject, counterpart, formatLocalRange(detail.Start, detail.End, s.location))
}

// resourceName falls back to the id when the lookup fails.
func (s *SessionService) resourceName(ctx context.Context, kind scheduler.ResourceKind, id string) string {
	ids := []string{id}
	switch kind {
	case scheduler.KindRoom:
		if rooms, err := s.store.GetRoomsByIDs(ctx, ids); err == nil && len(rooms) == 1 {
			return rooms[0].Name
		}
	case scheduler.KindTrainer:
		if trainers, err := s.store.GetTrainersByIDs(ctx, ids); err == nil && len(trainers) == 1 {
			return trainers[0].Name
		}
	case scheduler.KindMobileUnit:
		if units, err := s.store.GetMobileUnitsByIDs(ctx, ids); err == nil && len(units) == 1 {
			return units[0].Name
		}
	}
	return id
}

func (s *SessionService) sessionView(ctx context.Context, sessionID string, expand Expand) (SessionView, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return SessionView{}, mapRepoError(err, "session_id")
	}
	_, lines, err := s.loadDeal(ctx, session.DealID)
	if err != nil {
		return SessionView{}, err
	}
	views, err := s.present(ctx, lines, []persistence.Session{session}, provisioning.Plan{}, expand)
	if err != nil {
		return SessionView{}, err
	}
	return views[0], nil
}

// present maps sessions to views, loading the requested relations in bulk.
func (s *SessionService) present(ctx context.Context, lines []persistence.ProductLine, sessions []persistence.Session, plan provisioning.Plan, expand Expand) ([]SessionView, error) {
	var roomIDs, trainerIDs, unitIDs []string
	for _, session := range sessions {
		if expand.Room && session.RoomID != nil {
			roomIDs = append(roomIDs, *session.RoomID)
		}
		if expand.Trainers {
			trainerIDs = append(trainerIDs, session.TrainerIDs...)
		}
		if expand.MobileUnits {
			unitIDs = append(unitIDs, session.MobileUnitIDs...)
		}
	}

	rooms := make(map[string]persistence.Room)
	if len(roomIDs) > 0 {
		found, err := s.store.GetRoomsByIDs(ctx, roomIDs)
		if err != nil {
			return nil, err
		}
		for _, room := range found {
			rooms[room.ID] = room
		}
	}
	trainers := make(map[string]persistence.Trainer)
	if len(trainerIDs) > 0 {
		found, err := s.store.GetTrainersByIDs(ctx, trainerIDs)
		if err != nil {
			return nil, err
		}
		for _, trainer := range found {
			trainers[trainer.ID] = trainer
		}
	}
	units := make(map[string]persistence.MobileUnit)
	if len(unitIDs) > 0 {
		found, err := s.store.GetMobileUnitsByIDs(ctx, unitIDs)
		if err != nil {
			return nil, err
		}
		for _, unit := range found {
			units[unit.ID] = unit
		}
	}
	lineByID := make(map[string]persistence.ProductLine, len(lines))
	for _, line := range lines {
		lineByID[line.ID] = line
	}

	rules := s.reconciler.Rules()
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		if session.TrainerIDs == nil {
			session.TrainerIDs = []string{}
		}
		if session.MobileUnitIDs == nil {
			session.MobileUnitIDs = []string{}
		}
		view := SessionView{
			Session:             session,
			IsEmpty:             session.IsEmpty(),
			IsExceedingQuantity: plan.Flagged(session.ID),
		}
		if expand.ProductLine && session.ProductLineID != nil {
			if line, ok := lineByID[*session.ProductLineID]; ok {
				lineView := newProductLineView(line, rules)
				view.ProductLine = &lineView
			}
		}
		if expand.Room && session.RoomID != nil {
			if room, ok := rooms[*session.RoomID]; ok {
				view.Room = &room
			}
		}
		if expand.Trainers {
			view.Trainers = make([]persistence.Trainer, 0, len(session.TrainerIDs))
			for _, id := range session.TrainerIDs {
				if trainer, ok := trainers[id]; ok {
					view.Trainers = append(view.Trainers, trainer)
				}
			}
		}
		if expand.MobileUnits {
			view.MobileUnits = make([]persistence.MobileUnit, 0, len(session.MobileUnitIDs))
			for _, id := range session.MobileUnitIDs {
				if unit, ok := units[id]; ok {
					view.MobileUnits = append(view.MobileUnits, unit)
				}
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func newProductLineView(line persistence.ProductLine, rules provisioning.Rules) ProductLineView {
	view := ProductLineView{ProductLine: line, Plannable: rules.IsPlannable(line.ProductCode)}
	if view.Plannable {
		view.RequiredSessions = provisioning.RequiredSessions(line)
	}
	return view
}

func applyText(target **string, value Optional[string]) {
	if !value.Set {
		return
	}
	trimmed := strings.TrimSpace(value.Value)
	if value.Null || trimmed == "" {
		*target = nil
		return
	}
	*target = &trimmed
}

// cleanIDs trims and de-duplicates ids, keeping first occurrence order. ok is
// false when a blank id was supplied.
func cleanIDs(ids []string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	ok := true
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			ok = false
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, ok
}

func sessionEventData(session persistence.Session) map[string]any {
	data := map[string]any{
		"status":          session.Status,
		"trainer_ids":     session.TrainerIDs,
		"mobile_unit_ids": session.MobileUnitIDs,
	}
	if session.ProductLineID != nil {
		data["product_line_id"] = *session.ProductLineID
	}
	if session.RoomID != nil {
		data["room_id"] = *session.RoomID
	}
	if session.Start != nil {
		data["start"] = session.Start.UTC()
	}
	if session.End != nil {
		data["end"] = session.End.UTC()
	}
	return data
}

// publishEvent delivers an event after a successful commit. Failures are
// logged and never fail the request.
func publishEvent(ctx context.Context, publisher events.Publisher, logger *slog.Logger, event events.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "event_type", event.Type, "error", err)
	}
}
