package services

import (
	"errors"
	"fmt"
	"reflect"
	"storefront-service/models"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// PackageValidator checks a multi-package request and reports every violated
// rule, not just the first.
type PackageValidator struct {
	validate *validator.Validate
}

func NewPackageValidator() *PackageValidator {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &PackageValidator{validate: v}
}

// Validate returns the list of problems; an empty list means the request is valid.
func (pv *PackageValidator) Validate(req *models.MultiPackageRequest) []string {
	problems := pv.messages(pv.validate.Struct(req), "")
	if len(req.Packages) == 0 {
		problems = append(problems, "at least one package is required")
	}
	for i := range req.Packages {
		prefix := fmt.Sprintf("package %d: ", i+1)
		problems = append(problems, pv.messages(pv.validate.Struct(req.Packages[i]), prefix)...)
	}
	return problems
}

func (pv *PackageValidator) messages(err error, prefix string) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{prefix + err.Error()}
	}

	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		label := strings.ReplaceAll(fe.Field(), "_", " ")
		var msg string
		switch fe.Tag() {
		case "notblank", "required":
			msg = label + " is required"
		case "gt":
			msg = label + " must be greater than " + fe.Param()
		case "oneof":
			msg = label + " must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
		case "email":
			msg = label + " must be a valid email address"
		default:
			msg = label + " is invalid"
		}
		out = append(out, prefix+msg)
	}
	return out
}
