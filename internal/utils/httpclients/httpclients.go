// Package httpclients builds the outbound resty clients shared by the
// completion and connector integrations.
package httpclients

import (
	"context"
	"time"

	"resty.dev/v3"

	"github.com/DphenomenalALU/tresor-backend/internal/infrastructure/logger"
)

type RequestID struct{}
type startedAt struct{}

// NewClient returns a resty client that logs every outbound request with
// the inbound request ID, when one is on the context.
func NewClient(clientName string, timeout time.Duration) *resty.Client {
	client := resty.New().SetTimeout(timeout)

	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		r.SetContext(context.WithValue(r.Context(), startedAt{}, time.Now()))
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		log := logger.GetLogger()

		requestID, _ := r.Request.Context().Value(RequestID{}).(string)
		start, _ := r.Request.Context().Value(startedAt{}).(time.Time)

		log.Debug().
			Str("request_id", requestID).
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Str("method", r.Request.RawRequest.Method).
			Str("path", r.Request.RawRequest.URL.Path).
			Dur("latency", time.Since(start)).
			Msg("HTTP client request")
		return nil
	})
	return client
}
