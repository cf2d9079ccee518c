package httpx

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response es el sobre estándar que devuelve la API.
// success/data/message/errors siempre están presentes; los clientes no tienen que adivinar.
type Response struct {
	Success bool     `json:"success"`
	Data    any      `json:"data"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
	Code    string   `json:"code,omitempty"` // ej: "invalid_input", "not_found"
	Meta    *Meta    `json:"meta,omitempty"`
}

// Meta contiene información adicional útil para debugging y trazabilidad.
type Meta struct {
	RequestID string `json:"request_id,omitempty"`
	TimeUTC   string `json:"time_utc,omitempty"`
}

// JSON escribe una respuesta JSON con headers correctos.
// Nota: en caso de error de encodeo, responde 500 de forma segura.
func JSON(w http.ResponseWriter, status int, resp Response) {
	if resp.Errors == nil {
		resp.Errors = []string{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)

	if err := enc.Encode(resp); err != nil {
		// Último recurso: no se pudo serializar JSON.
		http.Error(w, `{"success":false,"data":null,"message":"internal server error","errors":[]}`, http.StatusInternalServerError)
	}
}

// OK devuelve una respuesta exitosa con data.
func OK(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	JSON(w, status, Response{
		Success: true,
		Data:    data,
		Message: message,
		Meta:    newMeta(r),
	})
}

// Fail devuelve un error estructurado. details va al arreglo errors (ej: errores de validación).
// No exponer detalles internos (SQL, stacktrace, etc.) en details.
func Fail(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...string) {
	JSON(w, status, Response{
		Success: false,
		Message: message,
		Errors:  details,
		Code:    code,
		Meta:    newMeta(r),
	})
}

func newMeta(r *http.Request) *Meta {
	return &Meta{
		RequestID: RequestIDFrom(r),
		TimeUTC:   time.Now().UTC().Format(time.RFC3339),
	}
}
