package pricelist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Lelo88/pricelist-api-golang/internal/db"
)

// database es lo que el repositorio necesita del pool.
// *pgxpool.Pool lo cumple; en tests se usa un fake.
type database interface {
	db.TxBeginner
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository accede a lista_precios, vigencia_lista_precios y al catálogo de materiales.
// Contiene SQL y mapeo DB → modelo. Cada operación de lote corre en su propia transacción.
type Repository struct {
	database  database
	txTimeout time.Duration
}

// NewRepository crea un repositorio de listas de precios.
// txTimeout acota cada transacción de lote (0 = sin límite).
func NewRepository(database database, txTimeout time.Duration) *Repository {
	return &Repository{database: database, txTimeout: txTimeout}
}

// Columnas de lista_precios devueltas por INSERT/UPDATE ... RETURNING.
const priceColumns = `id, cod_prov, cod_sap, costo_unitario::text, descuento1::text, descuento2::text,
		proveedor_id, fecha_actualizacion, updated_at`

// Insert persiste el lote completo o nada. Devuelve las filas con el id asignado por la DB.
func (repository *Repository) Insert(ctx context.Context, items []PriceListItem) ([]SupplierPriceRow, error) {
	if items == nil {
		return nil, ErrorInvalidInput
	}

	const query = `
		INSERT INTO lista_precios (cod_prov, cod_sap, costo_unitario, descuento1, descuento2, proveedor_id)
		VALUES ($1, $2, $3::numeric, $4::int, $5::int, $6)
		RETURNING ` + priceColumns + `;
	`

	rows := make([]SupplierPriceRow, 0, len(items))
	if len(items) == 0 {
		return rows, nil
	}

	err := db.WithTx(ctx, repository.database, repository.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		// Secuencial a propósito: si falla el ítem N se revierte todo el lote.
		for index, item := range items {
			row, err := scanPriceRow(tx.QueryRow(ctx, query,
				item.SupplierCode, item.SapCode, decimalText(item.UnitCost), item.Discount1, item.Discount2, item.SupplierID))
			if err != nil {
				return fmt.Errorf("item %d: %w", index+1, err)
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("insert price list", err)
	}

	return rows, nil
}

// Query lista las filas combinadas con el catálogo de materiales, más recientes primero.
// supplierID nil = todos los proveedores.
func (repository *Repository) Query(ctx context.Context, supplierID *int64) ([]SupplierPriceRow, error) {
	query := `
		SELECT DISTINCT
			lp.id, lp.cod_prov, lp.cod_sap, lp.costo_unitario::text, lp.descuento1::text, lp.descuento2::text,
			lp.proveedor_id, lp.fecha_actualizacion, lp.updated_at,
			cm.descripcion, cm.tipo_impuesto, cm.precio_bruto::text, cm.precio_neto::text, cm.fecha_actualizacion
		FROM lista_precios lp
		LEFT JOIN catalogo_materiales cm ON cm.material = lp.cod_sap
	`
	var args []any
	if supplierID != nil {
		query += ` WHERE lp.proveedor_id = $1`
		args = append(args, *supplierID)
	}
	query += ` ORDER BY lp.updated_at DESC, lp.id DESC;`

	rows, err := repository.database.Query(ctx, query, args...)
	if err != nil {
		return nil, persistenceError("query price list", err)
	}
	defer rows.Close()

	result := make([]SupplierPriceRow, 0)
	for rows.Next() {
		var (
			row                            SupplierPriceRow
			unitCost, discount1, discount2 *string
			grossPrice, netPrice           *string
		)
		if err := rows.Scan(
			&row.ID, &row.SupplierCode, &row.SapCode, &unitCost, &discount1, &discount2,
			&row.SupplierID, &row.LoadedAt, &row.UpdatedAt,
			&row.Description, &row.TaxType, &grossPrice, &netPrice, &row.ReferenceUpdatedAt,
		); err != nil {
			return nil, persistenceError("query price list", err)
		}
		if err := row.setAmounts(unitCost, discount1, discount2); err != nil {
			return nil, persistenceError("query price list", err)
		}
		if row.GrossPrice, err = parseNumeric(grossPrice); err != nil {
			return nil, persistenceError("query price list", err)
		}
		if row.NetPrice, err = parseNumeric(netPrice); err != nil {
			return nil, persistenceError("query price list", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceError("query price list", err)
	}

	return result, nil
}

// UpdatePrices aplica los patches en una sola transacción.
// Solo se escriben (y cuentan) las filas donde algún valor realmente cambia;
// un id inexistente o un patch sin cambios suma 0, no es error.
func (repository *Repository) UpdatePrices(ctx context.Context, patches []UpdatePriceListItem) (UpdateResult, error) {
	if patches == nil {
		return UpdateResult{}, ErrorInvalidInput
	}
	if len(patches) == 0 {
		return UpdateResult{UpdatedItems: []SupplierPriceRow{}, Message: MessageNoUpdateData}, nil
	}

	updated := make([]SupplierPriceRow, 0, len(patches))
	err := db.WithTx(ctx, repository.database, repository.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		for _, patch := range patches {
			query, args, ok := conditionalUpdate(patch)
			if !ok {
				continue
			}
			row, err := scanPriceRow(tx.QueryRow(ctx, query, args...))
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("id %d: %w", patch.ID, err)
			}
			updated = append(updated, row)
		}
		return nil
	})
	if err != nil {
		return UpdateResult{}, persistenceError("update prices", err)
	}

	return UpdateResult{
		UpdatedCount: len(updated),
		UpdatedItems: updated,
		Message:      updateMessage(len(updated)),
	}, nil
}

// conditionalUpdate arma el UPDATE de un patch. ok=false si el patch no trae campos.
// IS DISTINCT FROM compara con NULL de forma segura (NULL -> 5 y 5 -> NULL cuentan como cambio).
// El WHERE incluye el proveedor: un id de otro proveedor no matchea.
func conditionalUpdate(patch UpdatePriceListItem) (string, []any, bool) {
	if patch.IsEmpty() {
		return "", nil, false
	}

	args := []any{patch.ID, patch.SupplierID}
	var assignments, differences []string
	add := func(column, cast string, value any) {
		args = append(args, value)
		placeholder := fmt.Sprintf("$%d::%s", len(args), cast)
		assignments = append(assignments, column+" = "+placeholder)
		differences = append(differences, column+" IS DISTINCT FROM "+placeholder)
	}

	if patch.UnitCost.Set {
		add("costo_unitario", "numeric", decimalText(patch.UnitCost.Value))
	}
	if patch.Discount1.Set {
		add("descuento1", "int", patch.Discount1.Value)
	}
	if patch.Discount2.Set {
		add("descuento2", "int", patch.Discount2.Value)
	}

	query := `
		UPDATE lista_precios
		SET ` + strings.Join(assignments, ", ") + `, updated_at = now()
		WHERE id = $1 AND proveedor_id = $2 AND (` + strings.Join(differences, " OR ") + `)
		RETURNING ` + priceColumns + `;
	`
	return query, args, true
}

// UpsertValidity inserta o reemplaza la vigencia de cada proveedor (una por proveedor).
// La última escritura gana; no se guarda historial.
func (repository *Repository) UpsertValidity(ctx context.Context, windows []ValidityWindow) ([]ValidityWindow, error) {
	if windows == nil {
		return nil, ErrorInvalidInput
	}

	const query = `
		INSERT INTO vigencia_lista_precios (id_proveedor, fecha_inicio, fecha_fin)
		VALUES ($1, $2::date, $3::date)
		ON CONFLICT (id_proveedor) DO UPDATE
		SET fecha_inicio = EXCLUDED.fecha_inicio, fecha_fin = EXCLUDED.fecha_fin
		RETURNING id, id_proveedor, fecha_inicio::text, fecha_fin::text;
	`

	result := make([]ValidityWindow, 0, len(windows))
	if len(windows) == 0 {
		return result, nil
	}

	err := db.WithTx(ctx, repository.database, repository.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		for _, window := range windows {
			var saved ValidityWindow
			if err := tx.QueryRow(ctx, query, window.SupplierID, window.StartDate, window.EndDate).
				Scan(&saved.ID, &saved.SupplierID, &saved.StartDate, &saved.EndDate); err != nil {
				return fmt.Errorf("supplier %d: %w", window.SupplierID, err)
			}
			result = append(result, saved)
		}
		return nil
	})
	if err != nil {
		return nil, persistenceError("upsert validity", err)
	}

	return result, nil
}

func scanPriceRow(scanner pgx.Row) (SupplierPriceRow, error) {
	var (
		row                            SupplierPriceRow
		unitCost, discount1, discount2 *string
	)
	if err := scanner.Scan(
		&row.ID, &row.SupplierCode, &row.SapCode, &unitCost, &discount1, &discount2,
		&row.SupplierID, &row.LoadedAt, &row.UpdatedAt,
	); err != nil {
		return SupplierPriceRow{}, err
	}
	if err := row.setAmounts(unitCost, discount1, discount2); err != nil {
		return SupplierPriceRow{}, err
	}
	return row, nil
}

func (row *SupplierPriceRow) setAmounts(unitCost, discount1, discount2 *string) error {
	var err error
	if row.UnitCost, err = parseNumeric(unitCost); err != nil {
		return err
	}
	if row.Discount1, err = parseDiscount(discount1); err != nil {
		return err
	}
	row.Discount2, err = parseDiscount(discount2)
	return err
}

func parseNumeric(text *string) (*decimal.Decimal, error) {
	if text == nil {
		return nil, nil
	}
	value, err := decimal.NewFromString(*text)
	if err != nil {
		return nil, fmt.Errorf("parse numeric %q: %w", *text, err)
	}
	return &value, nil
}

// parseDiscount reporta el descuento como entero cuando no tiene parte decimal ("10.00" -> 10).
// Es solo presentación: en DB queda como está.
func parseDiscount(text *string) (*decimal.Decimal, error) {
	value, err := parseNumeric(text)
	if err != nil || value == nil {
		return value, err
	}
	if value.IsInteger() {
		integer := value.Truncate(0)
		return &integer, nil
	}
	return value, nil
}

func decimalText(value *decimal.Decimal) *string {
	if value == nil {
		return nil
	}
	text := value.String()
	return &text
}
