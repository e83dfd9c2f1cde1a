// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package handlers implements the status API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the envelope around every API payload.
type Response struct {
	Data  interface{} `json:"data,omitempty"`
	Error *ErrorInfo  `json:"error,omitempty"`
	Meta  *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo is attached to every response.
type MetaInfo struct {
	Timestamp time.Time `json:"timestamp"`
	Project   string    `json:"project,omitempty"`
}

// Codes carried in ErrorInfo.Code.
const (
	ErrNotFound      = "NOT_FOUND"
	ErrBadRequest    = "BAD_REQUEST"
	ErrInternalError = "INTERNAL_ERROR"
	ErrConflict      = "CONFLICT"
	ErrAppError      = "APP_ERROR"
	ErrGitError      = "GIT_ERROR"
	ErrSessionError  = "SESSION_ERROR"
)

// WriteJSON sends data wrapped in a Response.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	send(w, status, Response{Data: data})
}

// WriteError sends an error Response.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	send(w, status, Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func send(w http.ResponseWriter, status int, resp Response) {
	resp.Meta = &MetaInfo{Timestamp: time.Now()}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
