// Package validation wraps go-playground/validator for request payloads.
package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Validator reports field names by their JSON tag, so namespaces read like
// the request body ("products[1].quantity").
type Validator struct {
	v *validatorv10.Validate
}

func New() *Validator {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	return v.v.Struct(i)
}

var std = New()

// Struct validates i with the shared validator.
func Struct(i any) error {
	return std.Validate(i)
}

// FieldError is one failed rule, keyed by the JSON path of the field.
type FieldError struct {
	Field string
	Tag   string
}

// Fields flattens a validation error. The root struct name is dropped from
// each namespace. Non-validation errors yield nil.
func Fields(err error) []FieldError {
	var ve validatorv10.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make([]FieldError, 0, len(ve))
	for _, fe := range ve {
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		out = append(out, FieldError{Field: ns, Tag: fe.Tag()})
	}
	return out
}

// DecodeStrict decodes a single JSON value from r into dst, rejecting unknown
// fields and trailing data.
func DecodeStrict(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// DecodeStrictBytes is DecodeStrict over an in-memory body.
func DecodeStrictBytes(b []byte, dst any) error {
	if len(bytes.TrimSpace(b)) == 0 {
		return io.EOF
	}
	return DecodeStrict(bytes.NewReader(b), dst)
}

// UnknownField extracts the field name from a DisallowUnknownFields error.
func UnknownField(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(strings.TrimPrefix(msg, prefix), `"`), true
}

// Describe renders field errors as "field: rule" pairs for log lines.
func Describe(fields []FieldError) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Tag)
	}
	return strings.Join(parts, ", ")
}
