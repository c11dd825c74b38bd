package validator

import (
	stderrors "errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate runs struct tag validation.
func Validate(s interface{}) error {
	return validate.Struct(s)
}

// GetValidator returns the shared validator for custom registration.
func GetValidator() *validator.Validate {
	return validate
}

// FailedFields lists the namespaced fields that failed validation, sorted.
func FailedFields(err error) []string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if i := strings.Index(ns, "."); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, ns+" ("+fe.Tag()+")")
	}
	sort.Strings(fields)
	return fields
}
