package validator

import (
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/spacehub/rental-api/api"
)

const (
	ErrRequired      = "is required"
	ErrMinValue      = "must be at least %s"
	ErrMaxValue      = "must be at most %s"
	ErrPositive      = "must be greater than zero"
	ErrNotNegative   = "must not be negative"
	ErrPriceType     = "must be either hour or day"
	ErrAfterStart    = "must be after %s"
	ErrExactLength   = "must be exactly %s characters long"
	ErrRequiredWith  = "must be given together with %s"
	ErrInvalidFormat = "is invalid"
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	validator.RegisterValidation("price_type", validatePriceType)

	return validator
}

// decimalValue lets numeric tags such as gt and gte compare decimal amounts.
func decimalValue(field reflect.Value) interface{} {
	d, ok := field.Interface().(decimal.Decimal)
	if !ok {
		return nil
	}

	f, _ := d.Float64()
	return f
}

func validatePriceType(fl validator.FieldLevel) bool {
	priceType, ok := fl.Field().Interface().(api.PriceType)
	if !ok {
		return false
	}

	return priceType == api.Hour || priceType == api.Day
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return ErrRequired
	case "min":
		return fmt.Sprintf(ErrMinValue, err.Param())
	case "max":
		return fmt.Sprintf(ErrMaxValue, err.Param())
	case "gt":
		return ErrPositive
	case "gte":
		return ErrNotNegative
	case "gtfield":
		return fmt.Sprintf(ErrAfterStart, err.Param())
	case "len":
		return fmt.Sprintf(ErrExactLength, err.Param())
	case "required_with":
		return fmt.Sprintf(ErrRequiredWith, err.Param())
	case "price_type":
		return ErrPriceType
	default:
		return ErrInvalidFormat
	}
}
