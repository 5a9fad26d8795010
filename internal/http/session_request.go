package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/example/training-erp/internal/application"
)

var nullLiteral = []byte("null")

// decodeSessionPatch reads a session body keeping track of which keys were
// present and which were explicitly null. Unknown keys are ignored. An empty
// body yields an empty patch.
func decodeSessionPatch(w http.ResponseWriter, r *http.Request) (application.SessionPatch, map[string]string) {
	var patch application.SessionPatch

	var raw map[string]json.RawMessage
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return patch, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return patch, map[string]string{"body": "request body is too large"}
		}
		return patch, map[string]string{"body": "must be a valid JSON object"}
	}
	if raw == nil {
		return patch, map[string]string{"body": "must be a valid JSON object"}
	}

	fields := map[string]string{}
	text := func(key string, target *application.Optional[string]) {
		value, ok := raw[key]
		if !ok {
			return
		}
		opt, valid := decodeOptionalString(value)
		if !valid {
			fields[key] = "must be a string or null"
			return
		}
		*target = opt
	}
	list := func(key string, target *application.Optional[[]string]) {
		value, ok := raw[key]
		if !ok {
			return
		}
		opt, valid := decodeOptionalStrings(value)
		if !valid {
			fields[key] = "must be an array of strings or null"
			return
		}
		*target = opt
	}

	text("product_line_id", &patch.ProductLineID)
	text("status", &patch.Status)
	text("start", &patch.Start)
	text("end", &patch.End)
	text("room_id", &patch.RoomID)
	text("address", &patch.Address)
	text("site", &patch.Site)
	text("comments", &patch.Comments)
	list("trainer_ids", &patch.TrainerIDs)
	list("mobile_unit_ids", &patch.MobileUnitIDs)

	if len(fields) > 0 {
		return application.SessionPatch{}, fields
	}
	return patch, nil
}

func decodeOptionalString(raw json.RawMessage) (application.Optional[string], bool) {
	if bytes.Equal(bytes.TrimSpace(raw), nullLiteral) {
		return application.Null[string](), true
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return application.Optional[string]{}, false
	}
	return application.Some(value), true
}

func decodeOptionalStrings(raw json.RawMessage) (application.Optional[[]string], bool) {
	if bytes.Equal(bytes.TrimSpace(raw), nullLiteral) {
		return application.Null[[]string](), true
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return application.Optional[[]string]{}, false
	}
	if values == nil {
		values = []string{}
	}
	return application.Some(values), true
}
