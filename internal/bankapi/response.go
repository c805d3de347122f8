package bankapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotJSONObject is returned by Response.Object when the body is valid JSON
// but not an object, or not JSON at all.
var ErrNotJSONObject = errors.New("response body is not a JSON object")

// Response is an HTTP response from the points service, whatever its status.
type Response struct {
	Method string
	Path   string
	Status int
	Header http.Header
	Body   []byte
}

// IsSuccess reports whether the status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// Value decodes the body as JSON, keeping numbers as json.Number.
// A body that is not JSON is returned as its trimmed text.
func (r *Response) Value() any {
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 {
		return ""
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(trimmed)
	}
	return v
}

// Object decodes the body as a JSON object.
func (r *Response) Object() (map[string]any, error) {
	obj, ok := r.Value().(map[string]any)
	if !ok {
		return nil, ErrNotJSONObject
	}
	return obj, nil
}

// Field returns a top-level field of a JSON object body.
func (r *Response) Field(name string) (any, bool) {
	obj, err := r.Object()
	if err != nil {
		return nil, false
	}
	v, ok := obj[name]
	return v, ok
}

// Message returns the "message" field when the body is an object carrying one.
func (r *Response) Message() string {
	v, ok := r.Field("message")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// Text returns the body as a string. A JSON string body is unquoted; any
// other body is returned verbatim minus surrounding whitespace.
func (r *Response) Text() string {
	if s, ok := r.Value().(string); ok {
		return s
	}
	return strings.TrimSpace(string(r.Body))
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.Method, r.Path, err)
	}
	return nil
}

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport failure: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RegisterResponse is the 201 body of POST /cadastro.
type RegisterResponse struct {
	Message      string `json:"message"`
	ConfirmToken string `json:"confirmToken"`
}

// LoginResponse is the 200 body of POST /login.
type LoginResponse struct {
	Token string `json:"token"`
}

// BalanceResponse is the 200 body of GET /points/saldo.
type BalanceResponse struct {
	PiggyBankBalance int64 `json:"piggy_bank_balance"`
	NormalBalance    int64 `json:"normal_balance"`
}
