// This file implements request decoding and validation shared by the handlers.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"reimburse/internal/core"
)

const maxBodyBytes = 1 << 20

// badRequestError marks a body that could not be decoded at all. It
// classifies as a validation failure but maps to 400.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// RequestParser decodes JSON bodies into DTOs and validates their tags.
type RequestParser struct {
	validate *validator.Validate
}

func NewRequestParser() *RequestParser {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RequestParser{validate: v}
}

// Decode reads a single JSON object from the body into dst and validates it.
// Unknown fields are rejected.
func (p *RequestParser) Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var domain *core.Error
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.As(err, &domain):
			// Money and Date report their own parse failures.
			return err
		case errors.Is(err, io.EOF):
			return &badRequestError{core.Invalidf("request body is empty")}
		default:
			return &badRequestError{core.Invalidf("malformed request body: %s", err.Error())}
		}
	}
	if dec.More() {
		return &badRequestError{core.Invalidf("request body must contain a single JSON object")}
	}
	return p.Struct(dst)
}

// Struct validates v and converts validator failures into one validation error.
func (p *RequestParser) Struct(v any) error {
	err := p.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return core.Invalidf("invalid request: %s", err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return core.Invalidf("%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "gt", "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), minFor(fe))
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed the %q check", fe.Field(), fe.Tag())
	}
}

func minFor(fe validator.FieldError) string {
	if fe.Tag() != "gt" {
		return fe.Param()
	}
	if n, err := strconv.ParseInt(fe.Param(), 10, 64); err == nil {
		return strconv.FormatInt(n+1, 10)
	}
	return "more than " + fe.Param()
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Invalidf("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryParams reads typed values from a query string, keeping the first
// parse failure.
type queryParams struct {
	values url.Values
	err    error
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{values: r.URL.Query()}
}

func (q *queryParams) String(key string) string {
	return sanitizeInput(q.values.Get(key))
}

// List splits repeated and comma separated values.
func (q *queryParams) List(key string) []string {
	var out []string
	for _, v := range q.values[key] {
		for _, part := range strings.Split(v, ",") {
			if part = sanitizeInput(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (q *queryParams) Int(key string) int {
	v := q.String(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		q.fail(core.Invalidf("invalid %s %q", key, v))
	}
	return n
}

func (q *queryParams) ID(key string) *int64 {
	v := q.String(key)
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		q.fail(core.Invalidf("invalid %s %q", key, v))
		return nil
	}
	return &id
}

func (q *queryParams) Bool(key string) *bool {
	v := q.String(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		q.fail(core.Invalidf("invalid %s %q", key, v))
		return nil
	}
	return &b
}

func (q *queryParams) Date(key string) core.Date {
	v := q.String(key)
	if v == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		q.fail(err)
	}
	return d
}

func (q *queryParams) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

func (q *queryParams) Err() error { return q.err }

// sanitizeInput removes control characters except tab and newlines and trims
// whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
