package api

import (
	"encoding/json"
	"net/http"
)

// errorBody is the error payload every route returns.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON leaves &, < and > unescaped so URLs in payloads stay literal.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(data)
}

func httpError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}
