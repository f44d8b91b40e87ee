package service

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
}

// validateStruct runs struct tags and folds failures into one ErrValidation.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	sort.Strings(fields)
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
}
