package models

import (
	"math"
	"strings"
)

// ValidateMenuItem checks an administrative menu item before it enters the registry
func ValidateMenuItem(name string, price float64) error {
	if err := validateItemName(name); err != nil {
		return err
	}
	return validatePrice(price)
}

// ValidateOrderRequest checks the shape of a submission, independent of registry state
func ValidateOrderRequest(req SubmitOrderRequest) error {
	if req.TableID < 1 {
		return ErrNoTableSelected
	}
	if len(req.Items) == 0 {
		return ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return ErrInvalidQuantity
		}
	}
	return nil
}

func validateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ValidationError{Field: "name", Message: "menu item name is required"}
	}
	// names are stored unquoted in comma separated lines
	if strings.ContainsAny(name, ",\r\n") {
		return ValidationError{Field: "name", Message: "menu item name must not contain commas or line breaks"}
	}
	return nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return ValidationError{Field: "price", Message: "price must be a finite number"}
	}
	if price < 0 {
		return ValidationError{Field: "price", Message: "price must not be negative"}
	}
	return nil
}
