package utils

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
}

func ParseRequestBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dest)
	if err != nil {
		slog.Error("error parsing request body", "error", err)
		WriteJsonError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func WriteJsonResponse(w http.ResponseWriter, data interface{}) {
	WriteJsonResponseWithStatus(w, http.StatusOK, data)
}

func WriteJsonResponseWithStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("error serializing response body", "error", err)
	}
}

func WriteJsonError(w http.ResponseWriter, msg string, status int) {
	WriteJsonResponseWithStatus(w, status, errorResponse{Error: msg})
}

func WriteSuccess(w http.ResponseWriter) {
	WriteJsonResponse(w, map[string]bool{"success": true})
}

func URLParam(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if len(param) == 0 {
		return "", fmt.Errorf("missing {%v} url parameter", key)
	}
	return param, nil
}

// Ids are positive integers, zero is never assigned by the store.
func URLParamUint(r *http.Request, key string) (uint, error) {
	param, err := URLParam(r, key)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseUint(param, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id '%v' provided", param)
	}
	return uint(id), nil
}

// Returns def when the query param is absent, and an error when it is present but not an integer.
func IntQueryParam(r *http.Request, key string, def int) (int, error) {
	param := r.URL.Query().Get(key)
	if len(param) == 0 {
		return def, nil
	}

	value, err := strconv.Atoi(param)
	if err != nil {
		return 0, fmt.Errorf("invalid value '%v' for query param '%v'", param, key)
	}
	return value, nil
}
