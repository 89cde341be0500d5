package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "franchisee-hub/internal/common/errors"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeEnvelope writes {"stat": ok, "msg": msg} merged with fields.
func writeEnvelope(w http.ResponseWriter, status int, ok bool, msg string, fields map[string]interface{}) {
	body := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["stat"] = ok
	if msg != "" {
		body["msg"] = msg
	}
	writeJSON(w, status, body)
}

func writeOK(w http.ResponseWriter, msg string, fields map[string]interface{}) {
	writeEnvelope(w, http.StatusOK, true, msg, fields)
}

// writeError maps err onto a status and envelope. Faults are logged; their
// details are not returned to the caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := apperrors.FromError(err)
	status := apperrors.HTTPStatus(se.Code)

	fields := map[string]interface{}{"code": se.Code}
	if fe, ok := se.Metadata["errors"]; ok {
		fields["errors"] = fe
	}

	msg := se.Message
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", map[string]interface{}{
			"requestId": requestIDFromContext(r.Context()),
			"path":      r.URL.Path,
			"code":      string(se.Code),
			"error":     err,
		})
	} else if se.Details != "" && se.Code != apperrors.ErrCodeUnauthorized {
		msg = se.Message + ": " + se.Details
	}

	writeEnvelope(w, status, false, msg, fields)
}

// decodeValidated reads the body, validates it against schema and decodes
// it into out.
func (s *Server) decodeValidated(w http.ResponseWriter, r *http.Request, schema string, out interface{}) bool {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeEnvelope(w, http.StatusRequestEntityTooLarge, false, "Request body too large", nil)
			return false
		}
		s.writeError(w, r, apperrors.NewValidationError("cannot read request body"))
		return false
	}

	result, err := s.validator.ValidateJSON(schema, body)
	if err != nil {
		s.writeError(w, r, err)
		return false
	}
	if !result.Valid {
		writeEnvelope(w, http.StatusBadRequest, false, "Validation failed", map[string]interface{}{
			"code":   apperrors.ErrCodeValidationFailed,
			"errors": result.Errors,
		})
		return false
	}

	if err := json.Unmarshal(body, out); err != nil {
		s.writeError(w, r, apperrors.NewValidationError("malformed request body"))
		return false
	}
	return true
}
