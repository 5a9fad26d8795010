package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/training-erp/internal/application"
	"github.com/example/training-erp/internal/events"
	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/scheduler"
	"github.com/example/training-erp/internal/testfixtures"
)

type sessionEnv struct {
	harness  *testfixtures.SQLiteHarness
	recorder *testfixtures.EventRecorder
	service  *application.SessionService
}

func newSessionEnv(t *testing.T) *sessionEnv {
	t.Helper()

	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	harness := testfixtures.NewSQLiteHarness(t)
	recorder := &testfixtures.EventRecorder{}
	factory := testfixtures.NewServiceFactory(testfixtures.WithIDGenerator(testfixtures.NewIDGenerator("new")))
	return &sessionEnv{
		harness:  harness,
		recorder: recorder,
		service:  factory.NewSessionService(harness.Store, testfixtures.SessionServiceDeps{Publisher: recorder, Location: madrid}),
	}
}

func at(hour int) time.Time {
	return time.Date(2025, time.March, 10, hour, 0, 0, 0, time.UTC)
}

func iso(hour int) application.Optional[string] {
	return application.Some(at(hour).Format(time.RFC3339))
}

func requireValidation(t *testing.T, err error, fields ...string) *application.ValidationError {
	t.Helper()
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
	for _, field := range fields {
		assert.Contains(t, vErr.FieldErrors, field)
	}
	return vErr
}

func TestCreateSession_RejectsOverlappingRoom(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(
		testfixtures.WithDealTitle("Prevención de riesgos", "Construcciones Norte"),
		testfixtures.WithLine("FOR-PRL", "2", "2"),
	))
	room := env.harness.SeedRoom()
	trainer := env.harness.SeedTrainer()
	existing := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionLine(deal.Lines[0].ID),
		testfixtures.WithSessionStatus(persistence.StatusScheduled),
		testfixtures.WithSessionTime(at(10), at(12)),
		testfixtures.WithSessionRoom(room.ID),
		testfixtures.WithSessionTrainers(trainer.ID),
		testfixtures.WithSessionPlace("Calle Mayor 1", "Madrid"),
	))

	_, err := env.service.CreateSession(context.Background(), application.CreateSessionParams{
		DealID: deal.Deal.ID,
		Input: application.SessionPatch{
			Start:  iso(11),
			End:    iso(13),
			RoomID: application.Some(room.ID),
		},
	})

	var cErr *application.ConflictError
	require.True(t, errors.As(err, &cErr), "expected ConflictError, got %v", err)
	require.Len(t, cErr.Conflicts, 1)
	assert.Equal(t, scheduler.KindRoom, cErr.Conflicts[0].Kind)
	assert.Equal(t, room.ID, cErr.Conflicts[0].ResourceID)
	require.Len(t, cErr.Conflicts[0].Details, 1)
	assert.Equal(t, existing.ID, cErr.Conflicts[0].Details[0].SessionID)
	assert.Equal(t,
		"El aula "+room.Name+" ya está ocupada en «Prevención de riesgos (Construcciones Norte)» el 10/03/2025 de 11:00 a 13:00.",
		cErr.Summary,
	)

	assert.Len(t, env.harness.Sessions(deal.Deal.ID), 1, "nothing is written on conflict")
	assert.Empty(t, env.recorder.Events())
}

func TestCreateSession_CancelledSessionsNeverConflict(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "2", "2")))
	room := env.harness.SeedRoom()
	trainer := env.harness.SeedTrainer()
	env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionStatus(persistence.StatusCancelled),
		testfixtures.WithSessionTime(at(10), at(12)),
		testfixtures.WithSessionRoom(room.ID),
		testfixtures.WithSessionTrainers(trainer.ID),
	))

	view, err := env.service.CreateSession(context.Background(), application.CreateSessionParams{
		DealID: deal.Deal.ID,
		Input: application.SessionPatch{
			Start:      iso(10),
			End:        iso(12),
			RoomID:     application.Some(room.ID),
			TrainerIDs: application.Some([]string{trainer.ID}),
			Address:    application.Some("Calle Mayor 1"),
			Site:       application.Some("Madrid"),
		},
		Expand: application.Expand{Room: true, Trainers: true, ProductLine: true},
	})
	require.NoError(t, err)

	assert.Equal(t, persistence.StatusScheduled, view.Status, "complete sessions are scheduled")
	assert.Equal(t, deal.Lines[0].ID, *view.ProductLineID, "the single plannable line is the default")
	require.NotNil(t, view.Room)
	assert.Equal(t, room.Name, view.Room.Name)
	require.Len(t, view.Trainers, 1)
	require.NotNil(t, view.ProductLine)
	assert.True(t, view.ProductLine.Plannable)
	assert.Equal(t, 2, view.ProductLine.RequiredSessions)
	assert.Nil(t, view.MobileUnits, "mobile units were not expanded")
	assert.Equal(t, []string{}, view.MobileUnitIDs)

	assert.Equal(t, []events.Type{events.SessionCreated}, env.recorder.Types())
	assert.Equal(t, deal.Deal.ID, env.recorder.Events()[0].DealID)
}

func TestCreateSession_TrainerAndMobileUnitConflicts(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "2", "0")))
	other := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("CUR-EXCEL", "1", "0")))
	trainer := env.harness.SeedTrainer()
	unit := env.harness.SeedMobileUnit()
	env.harness.SeedSession(testfixtures.NewSession(other.Deal.ID,
		testfixtures.WithSessionStatus(persistence.StatusSuspended),
		testfixtures.WithSessionTime(at(9), at(11)),
		testfixtures.WithSessionTrainers(trainer.ID),
		testfixtures.WithSessionMobileUnits(unit.ID),
	))

	_, err := env.service.CreateSession(context.Background(), application.CreateSessionParams{
		DealID: deal.Deal.ID,
		Input: application.SessionPatch{
			Start:         iso(10),
			End:           iso(12),
			TrainerIDs:    application.Some([]string{trainer.ID}),
			MobileUnitIDs: application.Some([]string{unit.ID}),
		},
	})

	var cErr *application.ConflictError
	require.True(t, errors.As(err, &cErr), "expected ConflictError, got %v", err)
	require.Len(t, cErr.Conflicts, 2)
	assert.Equal(t, scheduler.KindTrainer, cErr.Conflicts[0].Kind)
	assert.Equal(t, scheduler.KindMobileUnit, cErr.Conflicts[1].Kind)
	assert.Contains(t, cErr.Summary, "El formador "+trainer.Name+" ya está asignado")

	// Touching endpoints are allowed.
	_, err = env.service.CreateSession(context.Background(), application.CreateSessionParams{
		DealID: deal.Deal.ID,
		Input: application.SessionPatch{
			Start:      iso(11),
			End:        iso(12),
			TrainerIDs: application.Some([]string{trainer.ID}),
		},
	})
	require.NoError(t, err)
}

func TestCreateSession_DerivesEndFromProductHours(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(
		testfixtures.WithLine("FOR-PRL", "1", "2.5"),
		testfixtures.WithLine("FOR-MAT-01", "1", "0"),
	))

	view, err := env.service.CreateSession(context.Background(), application.CreateSessionParams{
		DealID: deal.Deal.ID,
		Input:  application.SessionPatch{Start: application.Some("2025-03-10T10:00:00")},
	})
	require.NoError(t, err)

	// Local wall-clock time in Madrid (UTC+1).
	require.NotNil(t, view.Start)
	require.NotNil(t, view.End)
	assert.True(t, at(9).Equal(*view.Start))
	assert.True(t, at(9).Add(150*time.Minute).Equal(*view.End))
	assert.Equal(t, persistence.StatusDraft, view.Status)
	assert.False(t, view.IsEmpty)
}

func TestCreateSession_Validation(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	ctx := context.Background()
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(
		testfixtures.WithLine("FOR-PRL", "2", "2"),
		testfixtures.WithLine("CUR-EXCEL", "1", "3"),
	))
	foreign := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "1", "1")))
	inactive := env.harness.SeedTrainer()
	require.NoError(t, env.harness.Store.SetTrainerActive(ctx, inactive.ID, false, at(8)))
	lineID := deal.Lines[0].ID

	cases := []struct {
		name   string
		dealID string
		input  application.SessionPatch
		fields []string
	}{
		{
			name:   "several plannable lines need an explicit line",
			dealID: deal.Deal.ID,
			fields: []string{"product_line_id"},
		},
		{
			name:   "line of another deal",
			dealID: deal.Deal.ID,
			input:  application.SessionPatch{ProductLineID: application.Some(foreign.Lines[0].ID)},
			fields: []string{"product_line_id"},
		},
		{
			name:   "every problem is reported at once",
			dealID: deal.Deal.ID,
			input: application.SessionPatch{
				ProductLineID: application.Some(lineID),
				Start:         application.Some("mañana"),
				RoomID:        application.Some("missing-room"),
				TrainerIDs:    application.Some([]string{inactive.ID, "missing-trainer"}),
				MobileUnitIDs: application.Some([]string{"missing-unit"}),
				Status:        application.Some("Terminada"),
			},
			fields: []string{"start", "room_id", "trainer_ids", "mobile_unit_ids", "status"},
		},
		{
			name:   "end before start",
			dealID: deal.Deal.ID,
			input:  application.SessionPatch{ProductLineID: application.Some(lineID), Start: iso(12), End: iso(10)},
			fields: []string{"end"},
		},
		{
			name:   "end within the same millisecond as start",
			dealID: deal.Deal.ID,
			input: application.SessionPatch{
				ProductLineID: application.Some(lineID),
				Start:         application.Some("2025-03-10T09:00:00.0001Z"),
				End:           application.Some("2025-03-10T09:00:00.0009Z"),
			},
			fields: []string{"end"},
		},
		{
			name:   "explicit scheduled on an incomplete session",
			dealID: deal.Deal.ID,
			input:  application.SessionPatch{ProductLineID: application.Some(lineID), Status: application.Some("Planificada")},
			fields: []string{"status"},
		},
		{
			name:   "blank trainer id",
			dealID: deal.Deal.ID,
			input:  application.SessionPatch{ProductLineID: application.Some(lineID), TrainerIDs: application.Some([]string{" "})},
			fields: []string{"trainer_ids"},
		},
		{
			name:   "missing deal id",
			fields: []string{"deal_id"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.service.CreateSession(ctx, application.CreateSessionParams{DealID: tc.dealID, Input: tc.input})
			requireValidation(t, err, tc.fields...)
		})
	}

	vErr := requireValidation(t, func() error {
		_, err := env.service.CreateSession(ctx, application.CreateSessionParams{
			DealID: deal.Deal.ID,
			Input: application.SessionPatch{
				ProductLineID: application.Some(lineID),
				TrainerIDs:    application.Some([]string{inactive.ID, "missing-trainer"}),
			},
		})
		return err
	}())
	assert.Equal(t, "unknown trainers: missing-trainer; inactive trainers: "+inactive.ID, vErr.FieldErrors["trainer_ids"])

	assert.Empty(t, env.harness.Sessions(deal.Deal.ID), "validation failures write nothing")
	assert.Empty(t, env.recorder.Events())
}

func TestCreateSession_UnknownDeal(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	_, err := env.service.CreateSession(context.Background(), application.CreateSessionParams{DealID: "missing"})
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestUpdateSession_PatchSemantics(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	ctx := context.Background()
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "2", "3")))
	room := env.harness.SeedRoom()
	first := env.harness.SeedTrainer()
	second := env.harness.SeedTrainer()
	session := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionLine(deal.Lines[0].ID),
		testfixtures.WithSessionStatus(persistence.StatusScheduled),
		testfixtures.WithSessionTime(at(10), at(12)),
		testfixtures.WithSessionRoom(room.ID),
		testfixtures.WithSessionTrainers(first.ID),
		testfixtures.WithSessionPlace("Calle Mayor 1", "Madrid"),
		testfixtures.WithSessionComments("traer proyector"),
	))

	t.Run("only supplied fields change", func(t *testing.T) {
		view, err := env.service.UpdateSession(ctx, application.UpdateSessionParams{
			SessionID: session.ID,
			Input:     application.SessionPatch{TrainerIDs: application.Some([]string{second.ID, first.ID})},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{second.ID, first.ID}, view.TrainerIDs)
		assert.Equal(t, room.ID, *view.RoomID)
		assert.Equal(t, "traer proyector", *view.Comments)
		assert.Equal(t, persistence.StatusScheduled, view.Status)
	})

	t.Run("null clears and status follows completeness", func(t *testing.T) {
		view, err := env.service.UpdateSession(ctx, application.UpdateSessionParams{
			SessionID: session.ID,
			Input:     application.SessionPatch{RoomID: application.Null[string](), Comments: application.Null[string]()},
		})
		require.NoError(t, err)
		assert.Nil(t, view.RoomID)
		assert.Nil(t, view.Comments)
		assert.Equal(t, persistence.StatusDraft, view.Status)
	})

	t.Run("start without end derives end from hours", func(t *testing.T) {
		view, err := env.service.UpdateSession(ctx, application.UpdateSessionParams{
			SessionID: session.ID,
			Input:     application.SessionPatch{Start: iso(14)},
		})
		require.NoError(t, err)
		assert.True(t, at(17).Equal(*view.End))
	})

	t.Run("manual statuses stick", func(t *testing.T) {
		view, err := env.service.UpdateSession(ctx, application.UpdateSessionParams{
			SessionID: session.ID,
			Input: application.SessionPatch{
				Status: application.Some("Suspendido"),
				RoomID: application.Some(room.ID),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, persistence.StatusSuspended, view.Status)

		view, err = env.service.UpdateSession(ctx, application.UpdateSessionParams{
			SessionID: session.ID,
			Input:     application.SessionPatch{Comments: application.Some("aplazada")},
		})
		require.NoError(t, err)
		assert.Equal(t, persistence.StatusSuspended, view.Status, "complete but suspended stays suspended")

		view, err = env.service.UpdateSession(ctx, application.UpdateSessionParams{
			SessionID: session.ID,
			Input:     application.SessionPatch{Status: application.Some("Planificada")},
		})
		require.NoError(t, err)
		assert.Equal(t, persistence.StatusScheduled, view.Status)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := env.service.UpdateSession(ctx, application.UpdateSessionParams{SessionID: "missing"})
		assert.ErrorIs(t, err, application.ErrNotFound)
	})

	types := env.recorder.Types()
	require.NotEmpty(t, types)
	for _, eventType := range types {
		assert.Equal(t, events.SessionUpdated, eventType)
	}
}

func TestUpdateSession_KeepsEndWithoutProductHours(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "1", "0")))
	session := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionLine(deal.Lines[0].ID),
		testfixtures.WithSessionTime(at(10), at(12)),
	))

	view, err := env.service.UpdateSession(context.Background(), application.UpdateSessionParams{
		SessionID: session.ID,
		Input:     application.SessionPatch{Start: iso(11)},
	})
	require.NoError(t, err)
	assert.True(t, at(11).Equal(*view.Start))
	assert.True(t, at(12).Equal(*view.End))

	_, err = env.service.UpdateSession(context.Background(), application.UpdateSessionParams{
		SessionID: session.ID,
		Input:     application.SessionPatch{Start: iso(13)},
	})
	requireValidation(t, err, "end")
}

func TestUpdateSession_ConflictLeavesSessionUnchanged(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	ctx := context.Background()
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "2", "2")))
	roomA := env.harness.SeedRoom()
	roomB := env.harness.SeedRoom()
	trainerA := env.harness.SeedTrainer()
	trainerB := env.harness.SeedTrainer()
	unit := env.harness.SeedMobileUnit()

	target := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionLine(deal.Lines[0].ID),
		testfixtures.WithSessionStatus(persistence.StatusScheduled),
		testfixtures.WithSessionTime(at(10), at(12)),
		testfixtures.WithSessionRoom(roomA.ID),
		testfixtures.WithSessionTrainers(trainerA.ID),
		testfixtures.WithSessionMobileUnits(unit.ID),
		testfixtures.WithSessionPlace("Calle Mayor 1", "Madrid"),
	))
	env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionLine(deal.Lines[0].ID),
		testfixtures.WithSessionTime(at(14), at(16)),
		testfixtures.WithSessionRoom(roomB.ID),
	))

	before, err := env.harness.Store.GetSession(ctx, target.ID)
	require.NoError(t, err)

	_, err = env.service.UpdateSession(ctx, application.UpdateSessionParams{
		SessionID: target.ID,
		Input: application.SessionPatch{
			Start:         iso(15),
			End:           iso(17),
			RoomID:        application.Some(roomB.ID),
			TrainerIDs:    application.Some([]string{trainerB.ID}),
			MobileUnitIDs: application.Null[[]string](),
		},
	})
	var cErr *application.ConflictError
	require.True(t, errors.As(err, &cErr), "expected ConflictError, got %v", err)

	after, err := env.harness.Store.GetSession(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Moving within its own slot never conflicts with itself.
	_, err = env.service.UpdateSession(ctx, application.UpdateSessionParams{
		SessionID: target.ID,
		Input:     application.SessionPatch{Start: iso(11)},
	})
	require.NoError(t, err)
}

// blindStore hides committed bookings from the pool-level pre-check, so only
// the re-check inside the write transaction can see them.
type blindStore struct {
	persistence.Store
}

func (blindStore) RoomOverlaps(context.Context, persistence.OverlapQuery) ([]persistence.SessionOverlap, error) {
	return nil, nil
}

func (blindStore) TrainerOverlaps(context.Context, persistence.OverlapQuery) ([]persistence.SessionOverlap, error) {
	return nil, nil
}

func (blindStore) MobileUnitOverlaps(context.Context, persistence.OverlapQuery) ([]persistence.SessionOverlap, error) {
	return nil, nil
}

func TestCreateSession_RecheckInsideTransaction(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory()
	service := factory.NewSessionService(blindStore{Store: harness.Store}, testfixtures.SessionServiceDeps{})

	deal := harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "2", "2")))
	room := harness.SeedRoom()
	harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionTime(at(10), at(12)),
		testfixtures.WithSessionRoom(room.ID),
	))

	_, err := service.CreateSession(context.Background(), application.CreateSessionParams{
		DealID: deal.Deal.ID,
		Input:  application.SessionPatch{Start: iso(11), End: iso(12), RoomID: application.Some(room.ID)},
	})
	var cErr *application.ConflictError
	require.True(t, errors.As(err, &cErr), "expected ConflictError, got %v", err)
	assert.Len(t, harness.Sessions(deal.Deal.ID), 1)
}

func TestDeleteSession(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	ctx := context.Background()
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "1", "1")))
	trainer := env.harness.SeedTrainer()
	session := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID, testfixtures.WithSessionTrainers(trainer.ID)))

	require.NoError(t, env.service.DeleteSession(ctx, session.ID))
	assert.Empty(t, env.harness.Sessions(deal.Deal.ID))
	assert.Equal(t, []events.Type{events.SessionDeleted}, env.recorder.Types())

	assert.ErrorIs(t, env.service.DeleteSession(ctx, session.ID), application.ErrNotFound)
}

func TestListSessions_FlagsAndFilters(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	ctx := context.Background()
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "1", "2")))
	lineID := deal.Lines[0].ID
	room := env.harness.SeedRoom()

	kept := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionLine(lineID),
		testfixtures.WithSessionComments("confirmada"),
	))
	surplus := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionLine(lineID),
		testfixtures.WithSessionStatus(persistence.StatusSuspended),
		testfixtures.WithSessionRoom(room.ID),
	))
	prefilled := env.harness.SeedSession(testfixtures.NewSession(deal.Deal.ID,
		testfixtures.WithSessionPlace("Calle Mayor 1", "Madrid"),
	))

	views, err := env.service.ListSessions(ctx, application.ListSessionsParams{
		DealID: deal.Deal.ID,
		Expand: application.Expand{Room: true, Trainers: true, MobileUnits: true},
	})
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, kept.ID, views[0].ID)
	assert.False(t, views[0].IsExceedingQuantity)
	assert.False(t, views[0].IsEmpty)
	assert.Nil(t, views[0].Room)
	assert.Equal(t, []persistence.Trainer{}, views[0].Trainers)

	assert.Equal(t, surplus.ID, views[1].ID)
	assert.True(t, views[1].IsExceedingQuantity)
	require.NotNil(t, views[1].Room)

	assert.Equal(t, prefilled.ID, views[2].ID)
	assert.False(t, views[2].IsEmpty, "an address equal to the deal default is still data")
	assert.False(t, views[2].IsExceedingQuantity, "sessions without a plannable line are untouched")

	suspended, err := env.service.ListSessions(ctx, application.ListSessionsParams{DealID: deal.Deal.ID, Status: "Suspendido"})
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	assert.True(t, suspended[0].IsExceedingQuantity, "flags are computed before filtering")

	_, err = env.service.ListSessions(ctx, application.ListSessionsParams{DealID: deal.Deal.ID, Status: "Finished"})
	requireValidation(t, err, "estado")

	_, err = env.service.ListSessions(ctx, application.ListSessionsParams{DealID: "missing"})
	assert.ErrorIs(t, err, application.ErrNotFound)

	single, err := env.service.GetSession(ctx, surplus.ID, application.Expand{})
	require.NoError(t, err)
	assert.False(t, single.IsExceedingQuantity)
	assert.Nil(t, single.Room)
}

func TestSyncDealSessions(t *testing.T) {
	t.Parallel()

	env := newSessionEnv(t)
	ctx := context.Background()
	deal := env.harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "3", "4")))

	plan, err := env.service.PlanDealSessions(ctx, deal.Deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.CreateCount())

	result, err := env.service.SyncDealSessions(ctx, deal.Deal.ID)
	require.NoError(t, err)
	assert.Len(t, result.Created, 3)
	assert.Equal(t, 3, result.SessionCount)

	again, err := env.service.SyncDealSessions(ctx, deal.Deal.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Empty(t, again.Deleted)

	assert.Equal(t, []events.Type{events.DealSessionsSynced}, env.recorder.Types(), "no-op syncs publish nothing")

	_, err = env.service.SyncDealSessions(ctx, "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
	_, err = env.service.PlanDealSessions(ctx, "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestSessionService_PublishFailureDoesNotFailRequest(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	recorder := &testfixtures.EventRecorder{Err: errors.New("broker down")}
	service := testfixtures.NewServiceFactory().NewSessionService(harness.Store, testfixtures.SessionServiceDeps{Publisher: recorder})
	deal := harness.SeedDeal(testfixtures.NewDealFixture(testfixtures.WithLine("FOR-PRL", "1", "1")))

	_, err := service.CreateSession(context.Background(), application.CreateSessionParams{DealID: deal.Deal.ID})
	require.NoError(t, err)
	assert.Len(t, harness.Sessions(deal.Deal.ID), 1)
}
