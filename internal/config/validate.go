package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared across every Load*Config call; go-playground's
// validator.Validate caches struct reflection data internally and is
// documented as safe for concurrent use once built.
var validate = validator.New()

// validateStruct runs struct-tag validation over cfg and collapses any
// failures into one error naming every offending field, so a malformed
// document is rejected before it reaches the environment it would
// otherwise misconfigure.
func validateStruct(cfg interface{}) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fmt.Sprintf("%s: failed %q constraint", fieldPath(fe), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(messages, "; "))
}

// fieldPath turns a validator namespace like "EnvironmentConfig.LogLevel"
// into the lowercase, dot-joined form the document itself uses.
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}
