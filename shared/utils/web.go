package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/go-playground/validator/v10"
	internal_errors "github.com/itchan-dev/mediable/shared/errors"
	"github.com/itchan-dev/mediable/shared/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func WriteErrorAndStatusCode(w http.ResponseWriter, err error) {
	var e *internal_errors.ErrorWithStatusCode
	if errors.As(err, &e) {
		http.Error(w, e.Message, e.StatusCode)
		return
	}
	// default error is 500
	logger.Log.Error("internal error", "error", err)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Log.Error("failed to encode response", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// DecodeValidate decodes a JSON body into body and runs struct validation.
// Unknown fields are rejected.
func DecodeValidate(r io.Reader, body any) error {
	return decode(r, body, false)
}

// DecodeValidateOptional is DecodeValidate that accepts an empty body and
// leaves body untouched in that case.
func DecodeValidateOptional(r io.Reader, body any) error {
	return decode(r, body, true)
}

func decode(r io.Reader, body any, allowEmpty bool) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(body); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		logger.Log.Debug("invalid json body", "error", err)
		return &internal_errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: http.StatusBadRequest}
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("body validation failed", "error", err)
		return &internal_errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: http.StatusBadRequest}
	}
	return nil
}

// GetIP returns the client address from RemoteAddr. Forwarding headers are not trusted.
func GetIP(r *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	if net.ParseIP(ip) == nil {
		return "", &internal_errors.ErrorWithStatusCode{Message: "Invalid client address", StatusCode: http.StatusBadRequest}
	}
	return ip, nil
}
