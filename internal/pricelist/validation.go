package pricelist

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	maxSupplierCodeLength = 12
	maxSapCodeLength      = 6
	maxDescriptionLength  = 40
	minDiscount           = 0
	maxDiscount           = 100
)

// Claves del registro crudo (mismas que el JSON de la API).
const (
	fieldID           = "id"
	fieldSupplierCode = "supplierCode"
	fieldSapCode      = "sapCode"
	fieldDescription  = "description"
	fieldUnitCost     = "unitCost"
	fieldDiscount1    = "discount1"
	fieldDiscount2    = "discount2"
	fieldSupplierID   = "supplierId"
)

var (
	supplierCodePattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	sapCodePattern      = regexp.MustCompile(`^\d+$`)
	descriptionPattern  = regexp.MustCompile(`^[a-zA-Z0-9\s.,\-_/()#:+*%<>=^$&]+$`)
	integerPattern      = regexp.MustCompile(`^-?\d+$`)
)

// NewPriceListItem valida y normaliza un registro crudo.
// Corta en la primera regla violada (supplierCode, sapCode, description, unitCost, discount1, discount2).
func NewPriceListItem(raw RawRecord) (PriceListItem, error) {
	var item PriceListItem

	supplierCode, present, err := textValue(fieldSupplierCode, raw[fieldSupplierCode])
	if err != nil {
		return PriceListItem{}, err
	}
	if !present {
		return PriceListItem{}, newValidationError(fieldSupplierCode, "es obligatorio")
	}
	if utf8.RuneCountInString(supplierCode) > maxSupplierCodeLength {
		return PriceListItem{}, newValidationError(fieldSupplierCode, fmt.Sprintf("no puede superar %d caracteres", maxSupplierCodeLength))
	}
	if !supplierCodePattern.MatchString(supplierCode) {
		return PriceListItem{}, newValidationError(fieldSupplierCode, "solo admite letras y números")
	}
	item.SupplierCode = supplierCode

	sapCode, present, err := textValue(fieldSapCode, raw[fieldSapCode])
	if err != nil {
		return PriceListItem{}, err
	}
	if present {
		if !sapCodePattern.MatchString(sapCode) {
			return PriceListItem{}, newValidationError(fieldSapCode, "solo admite dígitos")
		}
		if utf8.RuneCountInString(sapCode) > maxSapCodeLength {
			return PriceListItem{}, newValidationError(fieldSapCode, fmt.Sprintf("no puede superar %d dígitos", maxSapCodeLength))
		}
		item.SapCode = &sapCode
	}

	description, present, err := textValue(fieldDescription, raw[fieldDescription])
	if err != nil {
		return PriceListItem{}, err
	}
	if present {
		if utf8.RuneCountInString(description) > maxDescriptionLength {
			return PriceListItem{}, newValidationError(fieldDescription, fmt.Sprintf("no puede superar %d caracteres", maxDescriptionLength))
		}
		if !descriptionPattern.MatchString(description) {
			return PriceListItem{}, newValidationError(fieldDescription, "contiene caracteres no permitidos")
		}
		item.Description = &description
	}

	if item.UnitCost, err = unitCostValue(raw[fieldUnitCost]); err != nil {
		return PriceListItem{}, err
	}
	if item.Discount1, err = discountValue(fieldDiscount1, raw[fieldDiscount1]); err != nil {
		return PriceListItem{}, err
	}
	if item.Discount2, err = discountValue(fieldDiscount2, raw[fieldDiscount2]); err != nil {
		return PriceListItem{}, err
	}

	supplierID, present, err := positiveIntValue(fieldSupplierID, raw[fieldSupplierID])
	if err != nil {
		return PriceListItem{}, err
	}
	if present {
		item.SupplierID = &supplierID
	}

	return item, nil
}

// Raw devuelve el registro normalizado en forma cruda.
// Volver a validarlo produce exactamente el mismo Raw.
func (item PriceListItem) Raw() RawRecord {
	var unitCost any
	if item.UnitCost != nil {
		unitCost = item.UnitCost.String()
	}
	return RawRecord{
		fieldSupplierCode: item.SupplierCode,
		fieldSapCode:      optional(item.SapCode),
		fieldDescription:  optional(item.Description),
		fieldUnitCost:     unitCost,
		fieldDiscount1:    optional(item.Discount1),
		fieldDiscount2:    optional(item.Discount2),
		fieldSupplierID:   optional(item.SupplierID),
	}
}

// NewUpdatePriceListItem arma un patch disperso: solo los campos presentes en raw se escriben.
// Un campo presente en null significa "setear NULL".
func NewUpdatePriceListItem(raw RawRecord) (UpdatePriceListItem, error) {
	id, present, err := positiveIntValue(fieldID, raw[fieldID])
	if err != nil {
		return UpdatePriceListItem{}, err
	}
	if !present {
		return UpdatePriceListItem{}, newValidationError(fieldID, "es obligatorio")
	}

	patch := UpdatePriceListItem{ID: id}

	if value, ok := raw[fieldUnitCost]; ok {
		unitCost, err := unitCostValue(value)
		if err != nil {
			return UpdatePriceListItem{}, err
		}
		patch.UnitCost = Optional[decimal.Decimal]{Set: true, Value: unitCost}
	}
	if value, ok := raw[fieldDiscount1]; ok {
		discount, err := discountValue(fieldDiscount1, value)
		if err != nil {
			return UpdatePriceListItem{}, err
		}
		patch.Discount1 = Optional[int]{Set: true, Value: discount}
	}
	if value, ok := raw[fieldDiscount2]; ok {
		discount, err := discountValue(fieldDiscount2, value)
		if err != nil {
			return UpdatePriceListItem{}, err
		}
		patch.Discount2 = Optional[int]{Set: true, Value: discount}
	}

	return patch, nil
}

// textValue convierte a string recortado. present=false para nil o vacío.
func textValue(field string, value any) (string, bool, error) {
	var text string
	switch typed := value.(type) {
	case nil:
		return "", false, nil
	case string:
		text = typed
	case json.Number:
		text = typed.String()
	case int:
		text = strconv.Itoa(typed)
	case int64:
		text = strconv.FormatInt(typed, 10)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return "", false, newValidationError(field, "no es un valor válido")
		}
		text = strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return "", false, newValidationError(field, "tipo de dato no soportado")
	}

	text = strings.TrimSpace(text)
	return text, text != "", nil
}

// numericValue parsea números y strings numéricos. nil o "" devuelven nil.
// En strings se quitan las comas de miles ("13,500.00" -> 13500).
func numericValue(field string, value any) (*decimal.Decimal, error) {
	var parsed decimal.Decimal
	var err error

	switch typed := value.(type) {
	case nil:
		return nil, nil
	case decimal.Decimal:
		parsed = typed
	case string:
		text := strings.TrimSpace(strings.ReplaceAll(typed, ",", ""))
		if text == "" {
			return nil, nil
		}
		parsed, err = decimal.NewFromString(text)
	case json.Number:
		parsed, err = decimal.NewFromString(typed.String())
	case int:
		parsed = decimal.NewFromInt(int64(typed))
	case int64:
		parsed = decimal.NewFromInt(typed)
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return nil, newValidationError(field, "debe ser un número finito")
		}
		parsed = decimal.NewFromFloat(typed)
	default:
		return nil, newValidationError(field, "tipo de dato no soportado")
	}
	if err != nil {
		return nil, newValidationError(field, "debe ser un número válido")
	}

	return &parsed, nil
}

func unitCostValue(value any) (*decimal.Decimal, error) {
	unitCost, err := numericValue(fieldUnitCost, value)
	if err != nil || unitCost == nil {
		return nil, err
	}
	if unitCost.IsNegative() {
		return nil, newValidationError(fieldUnitCost, "no puede ser negativo")
	}
	return unitCost, nil
}

// discountValue exige un entero en [0,100]. Un string debe ser entero literal ("10.5" falla).
func discountValue(field string, value any) (*int, error) {
	if text, ok := value.(string); ok {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
		if !integerPattern.MatchString(text) {
			return nil, newValidationError(field, "debe ser un número entero")
		}
	}

	number, err := numericValue(field, value)
	if err != nil || number == nil {
		return nil, err
	}
	if !number.IsInteger() {
		return nil, newValidationError(field, "debe ser un número entero")
	}
	if number.LessThan(decimal.NewFromInt(minDiscount)) || number.GreaterThan(decimal.NewFromInt(maxDiscount)) {
		return nil, newValidationError(field, fmt.Sprintf("debe estar entre %d y %d", minDiscount, maxDiscount))
	}

	discount := int(number.IntPart())
	return &discount, nil
}

// positiveIntValue parsea ids numéricos (> 0). present=false para nil o vacío.
func positiveIntValue(field string, value any) (int64, bool, error) {
	number, err := numericValue(field, value)
	if err != nil {
		return 0, false, err
	}
	if number == nil {
		return 0, false, nil
	}
	if !number.IsInteger() || !number.IsPositive() {
		return 0, false, newValidationError(field, "debe ser un entero positivo")
	}
	return number.IntPart(), true, nil
}

func optional[T any](value *T) any {
	if value == nil {
		return nil
	}
	return *value
}
