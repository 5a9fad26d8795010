// Package http exposes the training ERP over JSON/HTTP.
//
// Session endpoints:
//   - GET /deals/{dealID}/sessions and GET /sessions?dealId=: list a deal's
//     sessions. Query: estado (status label filter), expand.
//   - POST /deals/{dealID}/sessions and POST /sessions?dealId=: create a session.
//   - GET, PATCH, DELETE /sessions/{id}: read, patch or remove one session.
//   - POST /deals/{dealID}/sessions/sync: align sessions with purchased quantities.
//   - GET /deals/{dealID}/sessions/plan: the same alignment as a dry run.
//
// Session bodies use product_line_id, status, start, end, room_id, address,
// site, comments, trainer_ids and mobile_unit_ids. On PATCH only supplied keys
// change and null clears a field.
//
// Catalog endpoints: GET/POST /deals, GET/DELETE /deals/{dealID}, GET/POST
// /rooms, /trainers and /mobile-units, PATCH /trainers/{id} with {"active":bool}.
// GET /healthz pings the database.
//
// Every response is an envelope: {"ok":true,...} on success and
// {"ok":false,"error_code","message"} on failure, plus "errors" for field
// validation and "conflicts" for RESOURCE_CONFLICT.
package http
