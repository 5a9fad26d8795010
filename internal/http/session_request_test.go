package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/training-erp/internal/application"
)

func TestDecodeSessionPatch(t *testing.T) {
	t.Parallel()

	decode := func(body string) (application.SessionPatch, map[string]string) {
		req := httptest.NewRequest(http.MethodPatch, "/sessions/s-1", bytes.NewBufferString(body))
		return decodeSessionPatch(httptest.NewRecorder(), req)
	}

	t.Run("presence and null are distinguished", func(t *testing.T) {
		t.Parallel()
		patch, fields := decode(`{"comments":null,"room_id":"room-1","trainer_ids":[],"mobile_unit_ids":null,"extra":1}`)
		require.Nil(t, fields)

		assert.Equal(t, application.Null[string](), patch.Comments)
		assert.Equal(t, application.Some("room-1"), patch.RoomID)
		assert.Equal(t, application.Some([]string{}), patch.TrainerIDs)
		assert.Equal(t, application.Null[[]string](), patch.MobileUnitIDs)
		assert.False(t, patch.Start.Set)
		assert.False(t, patch.Status.Set)
	})

	t.Run("empty body is an empty patch", func(t *testing.T) {
		t.Parallel()
		patch, fields := decode("")
		require.Nil(t, fields)
		assert.Equal(t, application.SessionPatch{}, patch)
	})

	t.Run("ill typed values are field errors", func(t *testing.T) {
		t.Parallel()
		_, fields := decode(`{"start":10,"trainer_ids":[1,2],"site":{"a":1}}`)
		assert.Contains(t, fields, "start")
		assert.Contains(t, fields, "trainer_ids")
		assert.Contains(t, fields, "site")
	})

	t.Run("non object bodies are rejected", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{`[]`, `null`, `"x"`, `{`} {
			_, fields := decode(body)
			assert.Contains(t, fields, "body", body)
		}
	})
}

func TestStructFieldErrors(t *testing.T) {
	t.Parallel()

	fields := structFieldErrors(validate.Struct(dealRequest{
		Title: "Plan",
		Lines: []productLineRequest{{Quantity: "1"}},
	}))
	assert.Equal(t, map[string]string{"lines[0].product_code": "is required"}, fields)

	fields = structFieldErrors(validate.Struct(trainerRequest{Name: "Ana", Email: "x"}))
	assert.Equal(t, "must be a valid email address", fields["email"])

	assert.Nil(t, structFieldErrors(validate.Struct(roomRequest{Name: "Aula"})))
}
