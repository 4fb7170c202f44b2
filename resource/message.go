package resource

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kbukum/httpdispatch/dispatcher"
)

// messagePaths are tried in order to find a human-readable message.
var messagePaths = []string{
	"message",
	"error.message",
	"error_description",
	"error",
	"detail",
	"title",
	"errors.0.message",
}

var codePaths = []string{
	"code",
	"error.code",
	"error_code",
	"status",
}

var errInvalidJSON = errors.New("resource: invalid JSON error body")

// MessageError is a server error body reduced to a message and an optional
// code. It decodes the common shapes:
//
//	{"message": "not found"}
//	{"error": {"message": "quota exceeded", "code": 429}}
//	{"error": "invalid_grant", "error_description": "expired"}
//	{"detail": "...", "title": "..."}
type MessageError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// UnmarshalJSON extracts Message and Code from any of the known shapes.
func (e *MessageError) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errInvalidJSON
	}
	root := gjson.ParseBytes(data)
	e.Message = firstString(root, messagePaths)
	e.Code = firstString(root, codePaths)
	return nil
}

func firstString(root gjson.Result, paths []string) string {
	for _, path := range paths {
		r := root.Get(path)
		switch r.Type {
		case gjson.String:
			if r.Str != "" {
				return r.Str
			}
		case gjson.Number:
			return r.Raw
		}
	}
	return ""
}

// Error returns the message.
func (e MessageError) Error() string {
	return e.Message
}

// Description returns the message.
func (e MessageError) Description() string {
	return e.Message
}

// ParseMessageError decodes a MessageError from JSON, or uses the trimmed
// body as the message when it is not JSON. It never fails; it is meant as a
// Funcs.ParseErrorFn.
func ParseMessageError(body []byte, _ dispatcher.Meta) (MessageError, error) {
	var e MessageError
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return e, nil
	}
	if err := e.UnmarshalJSON([]byte(trimmed)); err != nil {
		e.Message = trimmed
	}
	return e, nil
}
