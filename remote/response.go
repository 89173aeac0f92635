package remote

import (
	"encoding/json"
	"net/http"
)

// Bodies are {"result": ...} on success and {"error": {...}} on failure.
// "result" is present even when the handler returned a zero value.
type (
	resultEnvelope struct {
		Result any `json:"result"`
	}
	errorEnvelope struct {
		Error *Error `json:"error"`
	}
)

// writeJSON sets the content type and status, then encodes body. The header
// is already sent when encoding fails.
func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func writeResult(w http.ResponseWriter, result any) error {
	return writeJSON(w, http.StatusOK, resultEnvelope{Result: result})
}
