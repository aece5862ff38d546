package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Yoonyonggeun/mostarle-kr/internal/apperr"
)

type APIError struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, APIError{Error: message})
}

// writeError maps the failure taxonomy onto HTTP statuses. Store failures
// carry the underlying message verbatim to aid operator debugging.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch ae.Kind {
	case apperr.KindValidation:
		writeJSON(w, http.StatusBadRequest, APIError{Error: ae.Msg, Fields: ae.Fields})
	case apperr.KindUnauthenticated:
		writeJSONError(w, ae.Msg, http.StatusUnauthorized)
	case apperr.KindForbidden:
		writeJSONError(w, ae.Msg, http.StatusForbidden)
	case apperr.KindNotFound:
		writeJSONError(w, ae.Msg, http.StatusNotFound)
	case apperr.KindConflict:
		writeJSONError(w, ae.Msg, http.StatusConflict)
	default:
		writeJSONError(w, ae.Error(), http.StatusInternalServerError)
	}
}

func writeMultipartError(w http.ResponseWriter, err error) {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "too large"):
		writeJSONError(w, "uploaded file exceeds maximum allowed size", http.StatusRequestEntityTooLarge)

	case strings.Contains(msg, "content-type isn't multipart/form-data"):
		writeJSONError(w, "invalid content type, expected multipart/form-data", http.StatusBadRequest)

	default:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
	}
}

func validationErrorsToMap(err error) map[string]string {
	errs := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			field := e.Field()
			switch e.Tag() {
			case "required":
				errs[field] = "is required"
			case "max":
				errs[field] = "exceeds maximum length"
			case "gt", "gte", "lte":
				errs[field] = "out of allowed range"
			case "url":
				errs[field] = "must be a valid URL"
			default:
				errs[field] = "invalid value"
			}
		}
	} else {
		errs["error"] = err.Error()
	}
	return errs
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

func parseIDList(values []string, field string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil || id <= 0 {
				return nil, apperr.Invalid(field, "must contain positive integers")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseFloatPtr(s, field string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, apperr.Invalid(field, "must be a number")
	}
	return &v, nil
}

func parseInt16Ptr(s, field string) (*int16, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return nil, apperr.Invalid(field, "must be an integer")
	}
	out := int16(v)
	return &out, nil
}

func parseIntPtr(s, field string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, apperr.Invalid(field, "must be an integer")
	}
	return &v, nil
}

func parseBoolPtr(s, field string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperr.Invalid(field, "must be true or false")
	}
	return &v, nil
}
