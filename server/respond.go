package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"pf-backoffice/models"
)

// envelope holds the fields written next to success and message.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes {"success", "message", ...fields}. success follows status.
func respond(w http.ResponseWriter, status int, message string, fields envelope) {
	body := envelope{"success": status < http.StatusBadRequest, "message": message}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// statusOf maps the error taxonomy onto HTTP status codes.
func statusOf(err error) int {
	var (
		validation *models.ValidationError
		auth       *models.AuthError
		duplicate  *models.DuplicateReferenceError
		transition *models.InvalidTransitionError
		upstream   *models.UpstreamError
		transport  *models.TransportError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &auth):
		return http.StatusUnauthorized
	case models.IsNotFound(err):
		return http.StatusNotFound
	case errors.As(err, &duplicate), errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &upstream):
		return http.StatusBadGateway
	case errors.As(err, &transport), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. Validation errors carry their bare
// message; unclassified errors are logged and hidden from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fields envelope) {
	status := statusOf(err)
	msg := err.Error()
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		msg = validation.Message
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("[http] %s %s: %v", r.Method, r.URL.Path, err)
		msg = "Internal server error"
	}
	respond(w, status, msg, fields)
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return models.NewValidationError("", "invalid request body: %v", err)
	}
	return nil
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return models.NewValidationError("", "invalid multipart body: %v", err)
	}
	return nil
}

func plural(n int, word string) string {
	if n == 1 {
		return strconv.Itoa(n) + " " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
