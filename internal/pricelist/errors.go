package pricelist

import (
	"errors"
	"fmt"
)

// Errores de dominio (no HTTP). El handler los traduce a status codes.
var (
	// ErrorInvalidInput indica que el payload no tiene la forma esperada (ej: data no es un arreglo).
	ErrorInvalidInput = errors.New("invalid input")
	// ErrorValidation permite preguntar errors.Is(err, ErrorValidation) sin conocer el campo.
	ErrorValidation = errors.New("validation failed")
)

// ValidationError describe la primera regla violada por un registro.
// Index es la posición (base 1) del registro dentro del lote; 0 si no aplica.
type ValidationError struct {
	Index   int
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Index > 0 {
		return fmt.Sprintf("registro %d: %s: %s", e.Index, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is permite errors.Is(err, ErrorValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// atIndex devuelve una copia del error con la posición del registro.
func atIndex(err error, index int) error {
	var validationError *ValidationError
	if errors.As(err, &validationError) {
		copied := *validationError
		copied.Index = index
		return &copied
	}
	return err
}

// PersistenceError envuelve cualquier falla de la base de datos.
// La transacción del lote ya fue revertida cuando este error llega al caller.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	// No re-envolvemos: un solo nivel de PersistenceError por operación.
	var persistence *PersistenceError
	if errors.As(err, &persistence) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}
