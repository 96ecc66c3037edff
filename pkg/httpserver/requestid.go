// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// AddRequestID tags each request context with a unique ID for log correlation.
func AddRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), requestIDKey{}, uuid.NewString())
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request ID stored in ctx, if any.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
