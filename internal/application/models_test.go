package application

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/training-erp/internal/persistence"
)

func TestParseExpand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values []string
		want   Expand
	}{
		{name: "none", values: nil, want: Expand{}},
		{name: "single", values: []string{"room"}, want: Expand{Room: true}},
		{name: "comma separated", values: []string{"product_line, trainers"}, want: Expand{ProductLine: true, Trainers: true}},
		{name: "repeated", values: []string{"mobile_units", "room"}, want: Expand{Room: true, MobileUnits: true}},
		{name: "resources shortcut", values: []string{"resources"}, want: Expand{Room: true, Trainers: true, MobileUnits: true}},
		{name: "case and blanks", values: []string{"ROOM,,"}, want: Expand{Room: true}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseExpand(tc.values)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseExpand([]string{"room,invoices"})
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.FieldErrors["expand"], "invoices")
}

func TestOptional(t *testing.T) {
	t.Parallel()

	var absent Optional[string]
	assert.False(t, absent.Set)
	assert.False(t, absent.HasValue())

	assert.True(t, Some("x").HasValue())

	null := Null[[]string]()
	assert.True(t, null.Set)
	assert.False(t, null.HasValue())
}

func TestNextStatus(t *testing.T) {
	t.Parallel()

	scheduled := persistence.StatusScheduled
	draft := persistence.StatusDraft
	cancelled := persistence.StatusCancelled

	cases := []struct {
		name     string
		current  persistence.SessionStatus
		explicit *persistence.SessionStatus
		complete bool
		want     persistence.SessionStatus
		invalid  bool
	}{
		{name: "incomplete draft stays draft", current: draft, want: draft},
		{name: "complete draft becomes scheduled", current: draft, complete: true, want: scheduled},
		{name: "incomplete scheduled falls back to draft", current: scheduled, want: draft},
		{name: "suspended sticks", current: persistence.StatusSuspended, complete: true, want: persistence.StatusSuspended},
		{name: "cancelled sticks", current: cancelled, want: cancelled},
		{name: "explicit draft on complete session", current: scheduled, explicit: &draft, complete: true, want: draft},
		{name: "explicit cancelled", current: draft, explicit: &cancelled, want: cancelled},
		{name: "explicit scheduled when complete", current: cancelled, explicit: &scheduled, complete: true, want: scheduled},
		{name: "explicit scheduled when incomplete", current: draft, explicit: &scheduled, invalid: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, vErr := nextStatus(tc.current, tc.explicit, tc.complete)
			if tc.invalid {
				require.NotNil(t, vErr)
				assert.Contains(t, vErr.FieldErrors, "status")
				return
			}
			require.Nil(t, vErr)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	want := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	for _, value := range []string{
		"2025-03-10T09:00:00Z",
		"2025-03-10T09:00:00.000Z",
		"2025-03-10T10:00:00+01:00",
		"2025-03-10T10:00:00",
		"2025-03-10T10:00",
		"2025-03-10 10:00:00",
		" 2025-03-10T10:00:00.000 ",
	} {
		got, err := parseTimestamp(value, madrid)
		require.NoError(t, err, value)
		assert.True(t, want.Equal(got), "%s parsed as %s", value, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	got, err := parseTimestamp("2025-03-10T09:00:00.0009Z", madrid)
	require.NoError(t, err)
	assert.True(t, want.Equal(got), "sub-millisecond digits are dropped, got %s", got)

	got, err = parseTimestamp("2025-03-10T10:00:00.1239", madrid)
	require.NoError(t, err)
	assert.True(t, want.Add(123*time.Millisecond).Equal(got), "got %s", got)

	for _, value := range []string{"", "tomorrow", "2025-13-01T00:00:00Z", "10/03/2025"} {
		_, err := parseTimestamp(value, madrid)
		assert.Error(t, err, value)
	}
}

func TestFormatLocalRange(t *testing.T) {
	t.Parallel()

	madrid, err := time.LoadLocation("Europe/Madrid")
	require.NoError(t, err)

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "el 10/03/2025 de 10:00 a 12:00", formatLocalRange(start, start.Add(2*time.Hour), madrid))
	assert.Equal(t, "del 10/03/2025 10:00 al 11/03/2025 10:00", formatLocalRange(start, start.Add(24*time.Hour), madrid))
}

func TestHoursToDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 4*time.Hour, hoursToDuration(decimal.RequireFromString("4")))
	assert.Equal(t, 90*time.Minute, hoursToDuration(decimal.RequireFromString("1.5")))
	assert.Equal(t, time.Duration(0), hoursToDuration(decimal.Zero))
	assert.Equal(t, 1000*time.Hour, hoursToDuration(decimal.RequireFromString("1000")))
	assert.Equal(t, time.Duration(0), hoursToDuration(decimal.RequireFromString("1e20")), "out of range hours derive no end")
}

func TestCleanIDs(t *testing.T) {
	t.Parallel()

	ids, ok := cleanIDs([]string{" t-2", "t-1", "t-2"})
	assert.True(t, ok)
	assert.Equal(t, []string{"t-2", "t-1"}, ids)

	ids, ok = cleanIDs([]string{"t-1", " "})
	assert.False(t, ok)
	assert.Equal(t, []string{"t-1"}, ids)
}

func TestConflictRequest(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	room := "room-1"

	base := persistence.Session{ID: "s-1", Status: persistence.StatusDraft, Start: &start, End: &end, RoomID: &room}

	req, ok := conflictRequest(base, "s-1")
	require.True(t, ok)
	assert.Equal(t, []string{"room-1"}, req.RoomIDs)
	assert.Equal(t, "s-1", req.ExcludeSessionID)

	cancelled := base
	cancelled.Status = persistence.StatusCancelled
	_, ok = conflictRequest(cancelled, "")
	assert.False(t, ok, "cancelled sessions hold no resources")

	noResources := base
	noResources.RoomID = nil
	_, ok = conflictRequest(noResources, "")
	assert.False(t, ok)

	noEnd := base
	noEnd.End = nil
	_, ok = conflictRequest(noEnd, "")
	assert.False(t, ok)
}
