package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rpupo63/blog-cms-backend/errs"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, payloadName string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errs.NewMaxBodySizeExceededError(maxErr.Limit)
		}
		return errs.NewMalformedPayloadError(payloadName, err)
	}
	return validateStruct(dst)
}

// decodeJSONFields behaves like decodeJSON and also returns the raw
// top-level members, so callers can tell an absent key from an explicit
// null.
func decodeJSONFields(w http.ResponseWriter, r *http.Request, payloadName string, dst any) (map[string]json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, errs.NewMaxBodySizeExceededError(maxErr.Limit)
		}
		return nil, errs.NewMalformedPayloadError(payloadName, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errs.NewMalformedPayloadError(payloadName, err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return nil, errs.NewMalformedPayloadError(payloadName, err)
	}
	return raw, validateStruct(dst)
}

// validateStruct checks the struct tags of v. Payloads that are not
// structs (maps, slices) carry no tags and are left to the caller.
func validateStruct(v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() != reflect.Struct {
		return nil
	}

	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" {
			return errs.NewMissingRequiredFieldError(fe.Field())
		}
		return errs.NewInvalidFieldError(fe.Field(), describeRule(fe))
	}
	return errs.NewInternalErrorWithCause("validation failed", err)
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "email":
		return "must be a valid e-mail address"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errs.NewInvalidFieldError(key, "must be a non-negative integer")
	}
	return n, nil
}
