package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rpupo63/blog-cms-backend/errs"
)

type Responder struct {
	logger zerolog.Logger
}

func NewResponder(logger zerolog.Logger) Responder {
	return Responder{logger}
}

// WriteJSON writes data as-is with the given status.
func (r Responder) WriteJSON(w http.ResponseWriter, status int, data any) {
	// Marshal the data first to check size and handle errors
	jsonData, err := json.Marshal(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("error marshaling response data")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	const maxResponseSize = 10 * 1024 * 1024 // 10MB
	if len(jsonData) > maxResponseSize {
		r.logger.Error().
			Int("responseSize", len(jsonData)).
			Int("maxSize", maxResponseSize).
			Msg("response too large")
		status = http.StatusInternalServerError
		jsonData, _ = json.Marshal(envelope{Error: "Response too large"})
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(jsonData); err != nil {
		r.logger.Error().Err(err).Msg("error writing response")
	}
}

// WriteData writes the success envelope {data, message}.
func (r Responder) WriteData(w http.ResponseWriter, status int, data any, message string) {
	r.WriteJSON(w, status, envelope{Data: data, Message: message})
}

// WriteEnvelope writes a fully built envelope, for responses that carry
// pagination or timestamps next to the data.
func (r Responder) WriteEnvelope(w http.ResponseWriter, status int, env envelope) {
	r.WriteJSON(w, status, env)
}

// WriteError writes the failure envelope {data: null, error}. Errors that
// are not an *errs.ApiErr, and every 5xx, are logged and reported with a
// generic message only.
func (r Responder) WriteError(w http.ResponseWriter, err error) {
	var apiErr *errs.ApiErr

	if !errors.As(err, &apiErr) || apiErr.StatusCode >= http.StatusInternalServerError {
		event := r.logger.Error().Err(err)
		if apiErr != nil {
			event = event.Str("cause", apiErr.GetFullError())
		}
		event.Msg("request failed")

		status := http.StatusInternalServerError
		message := "Internal Server Error"
		if apiErr != nil && apiErr.StatusCode != http.StatusInternalServerError {
			status = apiErr.StatusCode
			message = http.StatusText(status)
		}
		r.WriteJSON(w, status, envelope{Error: message})
		return
	}

	r.logger.Debug().Err(err).Int("status", apiErr.StatusCode).Msg("request rejected")

	r.WriteJSON(w, apiErr.StatusCode, envelope{
		Error:   apiErr.Message(),
		Message: apiErr.Details,
		Field:   apiErr.Field,
	})
}

// wrapDatabaseError wraps a database error with context information
func wrapDatabaseError(operation, entity string, cause error) error {
	return errs.NewDatabaseError(operation, entity, cause)
}
