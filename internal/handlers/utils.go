package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/productcatalog/apiserver/types"
)

const (
	msgServerError   = "Server error"
	msgInvalidID     = "Invalid ID"
	msgNotFound      = "Not found"
	msgRouteNotFound = "Route not found"
	msgMissingTitle  = "Missing title"
)

// maxID is the largest value a SERIAL column holds.
const maxID = math.MaxInt32

type contextKey string

const contextIdentityKey contextKey = "identity"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

func withIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// IdentityFromContext returns the authenticated caller attached by the gate.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(contextIdentityKey).(types.Identity)
	return identity, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// readJSON buffers the whole request body and decodes it into dst. The
// returned error text is suitable for the client.
func readJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("unexpected end of JSON input")
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	return json.Unmarshal(body, dst)
}

func validID(id int) bool {
	return id >= 1 && id <= maxID
}

// parseID reads a positive integer path parameter.
func parseID(r *http.Request, param string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || !validID(id) {
		return 0, errors.New(msgInvalidID)
	}
	return id, nil
}

// RouteNotFound answers unmatched paths and methods.
func RouteNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, msgRouteNotFound)
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
