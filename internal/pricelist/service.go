package pricelist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

// Mensajes del resultado de actualización.
const (
	MessageNoUpdateData = "No se proporcionaron datos para actualizar"
	MessageNoChanges    = "No se realizaron cambios: los valores enviados son iguales a los actuales"
)

func updateMessage(count int) string {
	if count == 0 {
		return MessageNoChanges
	}
	return fmt.Sprintf("%d registros actualizados correctamente", count)
}

// RepositoryAPI define lo que el service necesita de la persistencia.
// Permite testear el service con fakes sin tocar DB.
type RepositoryAPI interface {
	Insert(ctx context.Context, items []PriceListItem) ([]SupplierPriceRow, error)
	Query(ctx context.Context, supplierID *int64) ([]SupplierPriceRow, error)
	UpdatePrices(ctx context.Context, patches []UpdatePriceListItem) (UpdateResult, error)
	UpsertValidity(ctx context.Context, windows []ValidityWindow) ([]ValidityWindow, error)
}

// Service contiene las reglas de negocio de listas de precios.
// Valida el lote completo antes de tocar la DB: un registro inválido rechaza todo el lote.
type Service struct {
	repository RepositoryAPI
	logger     *slog.Logger
}

// NewService crea un service de listas de precios.
func NewService(repository RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repository: repository, logger: logger}
}

// Insert valida cada registro y persiste el lote con el proveedor autenticado.
func (service *Service) Insert(ctx context.Context, supplierID int64, rawItems []RawRecord) ([]SupplierPriceRow, error) {
	if rawItems == nil {
		return nil, ErrorInvalidInput
	}

	items := make([]PriceListItem, 0, len(rawItems))
	for index, raw := range rawItems {
		item, err := NewPriceListItem(withoutSupplier(raw))
		if err != nil {
			err = atIndex(err, index+1)
			service.logger.DebugContext(ctx, "price list item rejected", slog.Int64("supplier_id", supplierID), slog.Any("error", err))
			return nil, err
		}
		// El proveedor sale de la identidad autenticada, nunca del payload.
		item.SupplierID = &supplierID
		items = append(items, item)
	}

	rows, err := service.repository.Insert(ctx, items)
	if err != nil {
		service.logFailure(ctx, "insert", supplierID, len(items), err)
		return nil, err
	}

	service.logger.InfoContext(ctx, "price list inserted", slog.Int64("supplier_id", supplierID), slog.Int("count", len(rows)))
	return rows, nil
}

// Query devuelve las filas, opcionalmente filtradas por id de proveedor.
// El filtro llega como string (query param); vacío = sin filtro.
func (service *Service) Query(ctx context.Context, supplierFilter string) ([]SupplierPriceRow, error) {
	supplierFilter = strings.TrimSpace(supplierFilter)
	if supplierFilter == "" {
		return service.repository.Query(ctx, nil)
	}

	supplierID, err := strconv.ParseInt(supplierFilter, 10, 64)
	if err != nil || supplierID <= 0 {
		return nil, newValidationError("proveedor", "debe ser un id de proveedor numérico")
	}

	return service.repository.Query(ctx, &supplierID)
}

// UpdatePrices arma patches dispersos y los aplica en una sola transacción.
// Solo se tocan filas del proveedor autenticado; las de otro proveedor cuentan como sin cambios.
func (service *Service) UpdatePrices(ctx context.Context, supplierID int64, rawPatches []RawRecord) (UpdateResult, error) {
	if rawPatches == nil {
		return UpdateResult{}, ErrorInvalidInput
	}

	patches := make([]UpdatePriceListItem, 0, len(rawPatches))
	for index, raw := range rawPatches {
		patch, err := NewUpdatePriceListItem(raw)
		if err != nil {
			return UpdateResult{}, atIndex(err, index+1)
		}
		patch.SupplierID = supplierID
		patches = append(patches, patch)
	}

	result, err := service.repository.UpdatePrices(ctx, patches)
	if err != nil {
		service.logFailure(ctx, "update", supplierID, len(patches), err)
		return UpdateResult{}, err
	}

	service.logger.InfoContext(ctx, "price list updated", slog.Int64("supplier_id", supplierID), slog.Int("requested", len(patches)), slog.Int("count", result.UpdatedCount))
	return result, nil
}

// SetValidity valida las vigencias (sellando el proveedor autenticado) y las persiste por upsert.
func (service *Service) SetValidity(ctx context.Context, supplierID int64, rawWindows []ValidityWindowInput) ([]ValidityWindow, error) {
	if rawWindows == nil {
		return nil, ErrorInvalidInput
	}

	windows := make([]ValidityWindow, 0, len(rawWindows))
	for index, raw := range rawWindows {
		window, err := NewValidityWindow(ValidityWindow{
			SupplierID: supplierID,
			StartDate:  raw.StartDate,
			EndDate:    raw.EndDate,
		})
		if err != nil {
			return nil, atIndex(err, index+1)
		}
		windows = append(windows, window)
	}

	saved, err := service.repository.UpsertValidity(ctx, windows)
	if err != nil {
		service.logFailure(ctx, "validity", supplierID, len(windows), err)
		return nil, err
	}

	return saved, nil
}

func (service *Service) logFailure(ctx context.Context, operation string, supplierID int64, count int, err error) {
	level := slog.LevelError
	if errors.Is(err, ErrorInvalidInput) {
		level = slog.LevelWarn
	}
	service.logger.Log(ctx, level, "price list operation failed",
		slog.String("operation", operation),
		slog.Int64("supplier_id", supplierID),
		slog.Int("count", count),
		slog.Any("error", err),
	)
}

// withoutSupplier descarta el supplierId del payload: el proveedor sale del token.
func withoutSupplier(raw RawRecord) RawRecord {
	if _, ok := raw[fieldSupplierID]; !ok {
		return raw
	}
	trimmed := maps.Clone(raw)
	delete(trimmed, fieldSupplierID)
	return trimmed
}
