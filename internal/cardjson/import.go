// Package cardjson converts between the external JSON card schema and the
// in-memory card set. The schema is an order-significant array of objects:
//
//	[
//	  {"prompt": "...", "response": "...", "misses": 0, "hits": 0},
//	  ...
//	]
//
// All four fields are required on import. Reverse-mode counters
// (reverse_hits, reverse_misses) are optional and default to zero.
package cardjson

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/scry-local/internal/domain"
)

// wireCard mirrors one element of the external schema. Pointers distinguish a
// missing field from a zero value.
type wireCard struct {
	Prompt        *string `json:"prompt" validate:"required,notblank"`
	Response      *string `json:"response" validate:"required,notblank"`
	Misses        *int    `json:"misses" validate:"required,gte=0"`
	Hits          *int    `json:"hits" validate:"required,gte=0"`
	ReverseHits   *int    `json:"reverse_hits" validate:"omitempty,gte=0"`
	ReverseMisses *int    `json:"reverse_misses" validate:"omitempty,gte=0"`
}

func (w wireCard) card() domain.Card {
	card := domain.Card{
		Prompt:   *w.Prompt,
		Response: *w.Response,
		Misses:   *w.Misses,
		Hits:     *w.Hits,
	}
	if w.ReverseHits != nil {
		card.ReverseHits = *w.ReverseHits
	}
	if w.ReverseMisses != nil {
		card.ReverseMisses = *w.ReverseMisses
	}
	return card
}

// validate is a single instance of Validate, it caches struct info
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Import parses data in the external schema into a card set, preserving
// array order. Malformed JSON is rejected, never repaired. Every failure is
// a *ValidationError; existing state is never touched by Import.
func Import(data []byte) (domain.CardSet, error) {
	// encoding/json replaces invalid bytes with U+FFFD, which would not
	// round-trip.
	if !utf8.Valid(data) {
		return domain.CardSet{}, documentError("input is not valid UTF-8", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return domain.CardSet{}, documentError("expected a JSON array of cards, got empty input", nil)
		}
		return domain.CardSet{}, documentError("malformed JSON", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return domain.CardSet{}, documentError("expected a JSON array of cards", nil)
	}

	set := domain.NewCardSet()
	for index := 0; dec.More(); index++ {
		var w wireCard
		if err := dec.Decode(&w); err != nil {
			return domain.CardSet{}, decodeError(index, err)
		}
		if err := validate.Struct(w); err != nil {
			return domain.CardSet{}, fieldError(index, err)
		}
		set.Cards = append(set.Cards, w.card())
	}

	if _, err := dec.Token(); err != nil {
		return domain.CardSet{}, documentError("malformed JSON", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.CardSet{}, documentError("unexpected data after the card array", err)
	}

	return set, nil
}

// decodeError maps decoder failures for one element to a ValidationError.
func decodeError(index int, err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return &ValidationError{Index: index, Reason: "must be an object", Err: err}
		}
		return &ValidationError{
			Index:  index,
			Field:  lastPathElement(typeErr.Field),
			Reason: kindReason(typeErr.Type),
			Err:    err,
		}
	}
	return &ValidationError{Index: index, Reason: "malformed JSON", Err: err}
}

// fieldError maps the first validator failure to a ValidationError.
func fieldError(index int, err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Index: index, Reason: "invalid card", Err: err}
	}

	fe := fieldErrs[0]
	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "notblank":
		reason = "must not be empty"
	case "gte":
		reason = "must be a non-negative integer"
	default:
		reason = "failed " + fe.Tag() + " validation"
	}
	return &ValidationError{Index: index, Field: fe.Field(), Reason: reason}
}

func kindReason(t reflect.Type) string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "has the wrong type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int64, reflect.Int32:
		return "must be a non-negative integer"
	case reflect.String:
		return "must be a string"
	default:
		return "has the wrong type"
	}
}

func lastPathElement(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
