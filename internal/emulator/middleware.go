package emulator

import (
	"encoding/json"
	"net/http"
	"strings"
)

// AuthMiddleware rejects requests that do not carry the given bearer token.
func AuthMiddleware(token string, writeError func(w http.ResponseWriter, status int, message string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			// Parse Bearer token.
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			if parts[1] != token {
				writeError(w, http.StatusUnauthorized, "Invalid access token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON writes v as a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSplitwiseError writes an error in Splitwise's {"error": ...} shape.
func writeSplitwiseError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// ynabErrorBody is YNAB's error envelope.
type ynabErrorBody struct {
	Error ynabErrorDetail `json:"error"`
}

type ynabErrorDetail struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

// writeYNABError writes an error in YNAB's {"error": {id, name, detail}} shape.
func writeYNABError(w http.ResponseWriter, status int, message string) {
	name := "bad_request"
	switch status {
	case http.StatusUnauthorized:
		name = "unauthorized"
	case http.StatusNotFound:
		name = "not_found"
	case http.StatusInternalServerError:
		name = "internal_server_error"
	}

	writeJSON(w, status, ynabErrorBody{Error: ynabErrorDetail{
		ID:     http.StatusText(status),
		Name:   name,
		Detail: message,
	}})
}
