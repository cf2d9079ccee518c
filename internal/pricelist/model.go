package pricelist

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RawRecord es un registro tal como llega del cliente (JSON decodificado con UseNumber o fila CSV).
// Los valores pueden ser string, json.Number, números Go o nil.
type RawRecord map[string]any

// PriceListItem es un registro de lista de precios ya validado y normalizado.
// Los opcionales son nil cuando no vinieron, vinieron vacíos o en null.
// SupplierID lo asigna el servicio con la identidad autenticada, nunca el payload.
type PriceListItem struct {
	SupplierCode string           `json:"supplierCode"`
	SapCode      *string          `json:"sapCode"`
	Description  *string          `json:"description"`
	UnitCost     *decimal.Decimal `json:"unitCost"`
	Discount1    *int             `json:"discount1"`
	Discount2    *int             `json:"discount2"`
	SupplierID   *int64           `json:"supplierId"`
}

// SupplierPriceRow es una fila persistida, combinada con el catálogo de referencia.
// Los montos se leen como texto decimal (igual que en DB) y se serializan como número JSON.
type SupplierPriceRow struct {
	ID           int64            `json:"id"`
	SupplierCode string           `json:"supplierCode"`
	SapCode      *string          `json:"sapCode"`
	UnitCost     *decimal.Decimal `json:"unitCost"`
	Discount1    *decimal.Decimal `json:"discount1"`
	Discount2    *decimal.Decimal `json:"discount2"`
	SupplierID   *int64           `json:"supplierId"`
	LoadedAt     time.Time        `json:"loadedAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`

	// Campos del catálogo de materiales; nil si el cod_sap no existe allí.
	Description        *string          `json:"description"`
	TaxType            *string          `json:"taxType"`
	GrossPrice         *decimal.Decimal `json:"grossPrice"`
	NetPrice           *decimal.Decimal `json:"netPrice"`
	ReferenceUpdatedAt *time.Time       `json:"referenceUpdatedAt"`
}

// MarshalJSON escribe los montos como números JSON (100.5, 10) y no como strings.
func (row SupplierPriceRow) MarshalJSON() ([]byte, error) {
	type plainRow SupplierPriceRow
	return json.Marshal(struct {
		plainRow
		UnitCost   *json.Number `json:"unitCost"`
		Discount1  *json.Number `json:"discount1"`
		Discount2  *json.Number `json:"discount2"`
		GrossPrice *json.Number `json:"grossPrice"`
		NetPrice   *json.Number `json:"netPrice"`
	}{
		plainRow:   plainRow(row),
		UnitCost:   jsonNumber(row.UnitCost),
		Discount1:  jsonNumber(row.Discount1),
		Discount2:  jsonNumber(row.Discount2),
		GrossPrice: jsonNumber(row.GrossPrice),
		NetPrice:   jsonNumber(row.NetPrice),
	})
}

func jsonNumber(value *decimal.Decimal) *json.Number {
	if value == nil {
		return nil
	}
	number := json.Number(value.String())
	return &number
}

// Optional distingue "no tocar este campo" (Set=false) de "setear NULL" (Set=true, Value=nil).
type Optional[T any] struct {
	Set   bool
	Value *T
}

// UpdatePriceListItem es un patch parcial sobre una fila existente.
// SupplierID limita el patch a las filas del proveedor autenticado.
type UpdatePriceListItem struct {
	ID         int64
	SupplierID int64
	UnitCost   Optional[decimal.Decimal]
	Discount1  Optional[int]
	Discount2  Optional[int]
}

// IsEmpty indica que el patch no trae ningún campo para escribir.
func (patch UpdatePriceListItem) IsEmpty() bool {
	return !patch.UnitCost.Set && !patch.Discount1.Set && !patch.Discount2.Set
}

// UpdateResult resume un lote de actualizaciones.
type UpdateResult struct {
	UpdatedCount int                `json:"updatedCount"`
	UpdatedItems []SupplierPriceRow `json:"updatedItems"`
	Message      string             `json:"message"`
}

// ValidityWindow es el rango de vigencia de la lista de precios de un proveedor.
// Las fechas se guardan tal cual llegaron (ej: "2024-01-01").
type ValidityWindow struct {
	ID         int64  `json:"id"`
	SupplierID int64  `json:"supplierId" validate:"required,gt=0"`
	StartDate  string `json:"startDate" validate:"required"`
	EndDate    string `json:"endDate" validate:"required"`
}

// ValidityWindowInput es lo que manda el cliente; el proveedor sale del token
// y el id lo asigna la DB.
type ValidityWindowInput struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}
