package dispatch

import (
	"encoding/json"
	"net/http"
	"strings"
)

const (
	headerAllow       = "Allow"
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
)

type errorBody struct {
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func allowHeader(methods []string) string {
	return strings.Join(methods, ", ")
}

// defaultNotFound answers 404 with a JSON body.
var defaultNotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{
		Error:   "not found",
		Message: "no route for " + r.Method + " " + r.URL.Path,
	})
})

// defaultMethodNotAllowed answers 405 listing the Allow header the
// dispatcher has set.
var defaultMethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	allowed := strings.Split(w.Header().Get(headerAllow), ", ")
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Error:   "method not allowed",
		Message: r.Method + " is not allowed for " + r.URL.Path,
		Allowed: allowed,
	})
})

func writeInternalError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
}
