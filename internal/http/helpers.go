package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"dompet/internal/auth"
	"dompet/internal/core"
	applog "dompet/internal/log"
	"dompet/internal/ports"
	"dompet/internal/receipt"
)

const maxJSONBody = 1 << 20

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON value from the body and rejects trailing data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected data after JSON body", errBadRequest)
	}
	return nil
}

// flexibleAmount accepts an amount sent either as a JSON string or a number.
type flexibleAmount string

func (a *flexibleAmount) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = flexibleAmount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("amount must be a string or number: %w", err)
	}
	*a = flexibleAmount(n.String())
	return nil
}

// parseYearMonth reads year and month from the query. Missing values default
// to the current month in the service location; a present but malformed value
// is an error. monthSet reports whether month was given.
func (s *Server) parseYearMonth(r *http.Request) (year, month int, monthSet bool, err error) {
	year, month = s.txs.CurrentMonth()
	q := r.URL.Query()

	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, convErr := strconv.Atoi(v)
		if convErr != nil || y < 1 || y > 9999 {
			return 0, 0, false, fmt.Errorf("%w: year %q", errBadRequest, v)
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, convErr := strconv.Atoi(v)
		if convErr != nil {
			return 0, 0, false, fmt.Errorf("%w: month %q", errBadRequest, v)
		}
		if err := core.ValidateMonth(m); err != nil {
			return 0, 0, false, err
		}
		month, monthSet = m, true
	}
	return year, month, monthSet, nil
}

func userID(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

// statusFor maps domain errors to HTTP status codes and client messages.
// Unknown errors are 500 with a generic message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, core.ErrInvalidMonth):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, core.ErrEmptyTitle), errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrEmptyAmount), errors.Is(err, core.ErrInvalidType):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, core.ErrEmptyCategory):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrMissingFields), errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordMismatch):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, receipt.ErrEmptyImage):
		return http.StatusBadRequest, receipt.ErrEmptyImage.Error()
	case errors.Is(err, receipt.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge, receipt.ErrImageTooLarge.Error()
	case errors.Is(err, receipt.ErrUnsupportedImage):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, receipt.ErrRecognition):
		return http.StatusBadGateway, receipt.ErrRecognition.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// respondError writes err and logs it when it is a server fault.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).
			LogError(r.Context(), "Request failed", err, op, applog.NewFields().WithUser(userID(r)))
	}
	writeError(w, status, msg)
}

// readLimited reads at most limit bytes, returning receipt.ErrImageTooLarge
// when the body is longer.
func readLimited(rd io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(rd, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, receipt.ErrImageTooLarge
	}
	return b, nil
}
