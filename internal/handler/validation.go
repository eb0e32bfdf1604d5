package handler

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validationMessage renders validator errors as one line, e.g.
// "durationSeconds must satisfy gt=0".
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Validation failed"
	}
	parts := make([]string, 0, len(verrs))
	for _, e := range verrs {
		rule := e.Tag()
		if e.Param() != "" {
			rule += "=" + e.Param()
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", lowerFirst(e.Field()), rule))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
