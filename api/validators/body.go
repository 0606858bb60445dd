package validators

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// MaxJSONBody caps JSON request bodies; uploads go through multipart instead.
const MaxJSONBody = 1 << 20

// validate reports fields by their JSON names so clients can map errors
// back onto what they sent.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}()

var ruleMessages = map[string]string{
	"required":    "is required",
	"email":       "must be a valid email",
	"alphanum":    "must only contain letters and numbers",
	"hexadecimal": "must be hexadecimal",
	"uuid":        "must be a valid id",
	"min":         "must be at least %s",
	"max":         "must be at most %s",
	"len":         "must be %s characters long",
	"eqfield":     "must match %s",
	"gt":          "must be greater than %s",
}

// DecodeJSONBody reads exactly one JSON object into dest, rejecting unknown
// fields and oversized bodies, then applies dest's validate tags.
func DecodeJSONBody(r *http.Request, dest any) error {
	body := http.MaxBytesReader(nil, r.Body, MaxJSONBody)
	defer io.Copy(io.Discard, body)

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
			WithDetails(pkgerrors.FieldDetail{Field: "body", Reason: err.Error()})
	}
	if dec.More() {
		return pkgerrors.Validation("body", "request body must hold a single JSON object")
	}
	return ValidateStruct(dest)
}

// ValidateStruct applies dest's validate tags. Failures come back as one
// FieldDetail per offending field.
func ValidateStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make([]pkgerrors.FieldDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, pkgerrors.FieldDetail{Field: fe.Field(), Reason: describe(fe)})
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	msg, ok := ruleMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(msg, "%s") {
		return strings.Replace(msg, "%s", fe.Param(), 1)
	}
	return msg
}
