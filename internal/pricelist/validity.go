package pricelist

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Formatos aceptados para las fechas de vigencia.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	time.DateTime,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// Reportamos el nombre JSON del campo, que es el que conoce el cliente.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return validate
}

// NewValidityWindow valida una vigencia antes de persistirla.
// supplierId es obligatorio y startDate <= endDate comparando la fecha de calendario
// tal como se escribió (con su propio offset), que es lo que guarda la columna date.
// Las fechas no se normalizan: se persisten tal cual llegaron.
func NewValidityWindow(window ValidityWindow) (ValidityWindow, error) {
	if err := validate.Struct(window); err != nil {
		return ValidityWindow{}, translateValidatorError(err)
	}

	start, err := parseDate(window.StartDate)
	if err != nil {
		return ValidityWindow{}, newValidationError("startDate", "no es una fecha válida")
	}
	end, err := parseDate(window.EndDate)
	if err != nil {
		return ValidityWindow{}, newValidationError("endDate", "no es una fecha válida")
	}
	if start > end {
		return ValidityWindow{}, newValidationError("startDate", "no puede ser posterior a endDate")
	}

	return window, nil
}

// parseDate devuelve la fecha de calendario ("2006-01-02") en el offset del propio valor.
func parseDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range dateLayouts {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed.Format(time.DateOnly), nil
		}
		lastErr = err
	}
	return "", lastErr
}

func translateValidatorError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) || len(fieldErrors) == 0 {
		return err
	}

	fieldError := fieldErrors[0]
	switch fieldError.Tag() {
	case "required":
		return newValidationError(fieldError.Field(), "es obligatorio")
	case "gt":
		return newValidationError(fieldError.Field(), "debe ser mayor que "+fieldError.Param())
	default:
		return newValidationError(fieldError.Field(), "no es válido")
	}
}
