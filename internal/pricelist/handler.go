package pricelist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"unicode/utf8"

	"github.com/Lelo88/pricelist-api-golang/internal/httpx"
)

// Tamaño máximo aceptado para un lote JSON o un archivo CSV.
const maxBodyBytes = 10 << 20

// ServiceAPI define lo que el handler necesita.
// Permite testear handlers con stubs sin tocar DB.
type ServiceAPI interface {
	Insert(ctx context.Context, supplierID int64, rawItems []RawRecord) ([]SupplierPriceRow, error)
	Query(ctx context.Context, supplierFilter string) ([]SupplierPriceRow, error)
	UpdatePrices(ctx context.Context, supplierID int64, rawPatches []RawRecord) (UpdateResult, error)
	SetValidity(ctx context.Context, supplierID int64, rawWindows []ValidityWindowInput) ([]ValidityWindow, error)
}

// IdentityFunc devuelve el id de proveedor del usuario autenticado.
type IdentityFunc func(ctx context.Context) (int64, bool)

// RowRecorder cuenta filas escritas por operación (métricas).
type RowRecorder interface {
	ObserveRows(operation string, count int)
}

type noopRecorder struct{}

func (noopRecorder) ObserveRows(string, int) {}

// Handler HTTP para listas de precios.
// Solo traduce HTTP <-> dominio (service).
type Handler struct {
	service  ServiceAPI
	identity IdentityFunc
	recorder RowRecorder
}

// NewHandler crea un handler de listas de precios.
func NewHandler(service ServiceAPI, identity IdentityFunc) *Handler {
	return &Handler{service: service, identity: identity, recorder: noopRecorder{}}
}

// WithRecorder registra las filas escritas en recorder.
func (handler *Handler) WithRecorder(recorder RowRecorder) *Handler {
	if recorder != nil {
		handler.recorder = recorder
	}
	return handler
}

// batchRequest es el sobre de entrada: {"data": [...]}.
type batchRequest struct {
	Data json.RawMessage `json:"data"`
}

// List maneja GET /price-lists?proveedor=<id>.
func (handler *Handler) List(writer http.ResponseWriter, request *http.Request) {
	rows, err := handler.service.Query(request.Context(), request.URL.Query().Get("proveedor"))
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	httpx.OK(writer, request, http.StatusOK, "", rows)
}

// Create maneja POST /price-lists.
func (handler *Handler) Create(writer http.ResponseWriter, request *http.Request) {
	supplierID, ok := handler.supplier(writer, request)
	if !ok {
		return
	}

	var rawItems []RawRecord
	if !decodeBatch(writer, request, &rawItems) {
		return
	}

	handler.insert(writer, request, supplierID, rawItems)
}

// Patch maneja PATCH /price-lists.
func (handler *Handler) Patch(writer http.ResponseWriter, request *http.Request) {
	supplierID, ok := handler.supplier(writer, request)
	if !ok {
		return
	}

	var rawPatches []RawRecord
	if !decodeBatch(writer, request, &rawPatches) {
		return
	}

	result, err := handler.service.UpdatePrices(request.Context(), supplierID, rawPatches)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	handler.recorder.ObserveRows("update", result.UpdatedCount)
	httpx.OK(writer, request, http.StatusOK, result.Message, result)
}

// PutValidity maneja PUT /price-lists/validity.
func (handler *Handler) PutValidity(writer http.ResponseWriter, request *http.Request) {
	supplierID, ok := handler.supplier(writer, request)
	if !ok {
		return
	}

	var rawWindows []ValidityWindowInput
	if !decodeBatch(writer, request, &rawWindows) {
		return
	}

	windows, err := handler.service.SetValidity(request.Context(), supplierID, rawWindows)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	handler.recorder.ObserveRows("validity", len(windows))
	httpx.OK(writer, request, http.StatusOK, "Vigencia actualizada correctamente", windows)
}

// Import maneja POST /price-lists/import con un archivo delimitado.
// El charset sale del Content-Type; el separador de ?sep= (por defecto ';').
func (handler *Handler) Import(writer http.ResponseWriter, request *http.Request) {
	supplierID, ok := handler.supplier(writer, request)
	if !ok {
		return
	}

	separator := defaultSeparator
	if value := request.URL.Query().Get("sep"); value != "" {
		if utf8.RuneCountInString(value) != 1 {
			httpx.Fail(writer, request, http.StatusBadRequest, "invalid_separator", "sep must be a single character")
			return
		}
		separator, _ = utf8.DecodeRuneInString(value)
	}

	charset := ""
	if contentType := request.Header.Get("Content-Type"); contentType != "" {
		if _, params, err := mime.ParseMediaType(contentType); err == nil {
			charset = params["charset"]
		}
	}

	rawItems, err := ParseCSV(http.MaxBytesReader(writer, request.Body, maxBodyBytes), charset, separator)
	if err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			httpx.Fail(writer, request, http.StatusRequestEntityTooLarge, "payload_too_large", "file too large")
			return
		}
		handler.fail(writer, request, err)
		return
	}

	handler.insert(writer, request, supplierID, rawItems)
}

func (handler *Handler) insert(writer http.ResponseWriter, request *http.Request, supplierID int64, rawItems []RawRecord) {
	rows, err := handler.service.Insert(request.Context(), supplierID, rawItems)
	if err != nil {
		handler.fail(writer, request, err)
		return
	}

	handler.recorder.ObserveRows("insert", len(rows))
	httpx.OK(writer, request, http.StatusCreated, fmt.Sprintf("%d registros insertados correctamente", len(rows)), rows)
}

func (handler *Handler) supplier(writer http.ResponseWriter, request *http.Request) (int64, bool) {
	if handler.identity == nil {
		httpx.Fail(writer, request, http.StatusUnauthorized, "unauthorized", "authentication required")
		return 0, false
	}
	supplierID, ok := handler.identity(request.Context())
	if !ok || supplierID <= 0 {
		httpx.Fail(writer, request, http.StatusUnauthorized, "unauthorized", "authentication required")
		return 0, false
	}
	return supplierID, true
}

// decodeBatch lee {"data": [...]} en target. data ausente o no arreglo => invalid_input.
// Los números se decodifican como json.Number para no perder precisión.
func decodeBatch(writer http.ResponseWriter, request *http.Request, target any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(writer, request.Body, maxBodyBytes))
	decoder.UseNumber()

	var body batchRequest
	if err := decoder.Decode(&body); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_json", "invalid JSON body")
		return false
	}

	data := bytes.TrimSpace(body.Data)
	if len(data) == 0 || data[0] != '[' {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "data must be an array")
		return false
	}

	dataDecoder := json.NewDecoder(bytes.NewReader(data))
	dataDecoder.UseNumber()
	if err := dataDecoder.Decode(target); err != nil {
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "invalid input data")
		return false
	}
	return true
}

// fail traduce errores de dominio a HTTP. No filtramos detalles internos.
func (handler *Handler) fail(writer http.ResponseWriter, request *http.Request, err error) {
	var validationError *ValidationError
	switch {
	case errors.As(err, &validationError):
		httpx.Fail(writer, request, http.StatusBadRequest, "validation_error", "validation failed", validationError.Error())
	case errors.Is(err, ErrorInvalidInput):
		httpx.Fail(writer, request, http.StatusBadRequest, "invalid_input", "invalid input data")
	case errors.Is(err, context.DeadlineExceeded):
		httpx.Fail(writer, request, http.StatusServiceUnavailable, "timeout", "operation timed out")
	default:
		httpx.Fail(writer, request, http.StatusInternalServerError, "internal_error", "unexpected error")
	}
}
