package pricelist

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

const defaultSeparator = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encabezados aceptados: los nombres de columna de la planilla del proveedor y los de la API.
var csvColumns = map[string]string{
	"cod_prov":       fieldSupplierCode,
	"costo_unitario": fieldUnitCost,
	"cod_sap":        fieldSapCode,
	"descripcion":    fieldDescription,
	"descuento1":     fieldDiscount1,
	"descuento2":     fieldDiscount2,
	"suppliercode":   fieldSupplierCode,
	"sapcode":        fieldSapCode,
	"description":    fieldDescription,
	"unitcost":       fieldUnitCost,
	"discount1":      fieldDiscount1,
	"discount2":      fieldDiscount2,
}

// ParseCSV convierte un archivo delimitado en registros crudos listos para validar.
// charset vacío = UTF-8. Las columnas desconocidas se ignoran; cod_prov es obligatoria.
func ParseCSV(reader io.Reader, charset string, separator rune) ([]RawRecord, error) {
	decoded, err := decodeCharset(reader, charset)
	if err != nil {
		return nil, err
	}

	buffered := bufio.NewReader(decoded)
	if prefix, err := buffered.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = buffered.Discard(len(utf8BOM))
	}

	csvReader := csv.NewReader(buffered)
	csvReader.Comma = separator
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", ErrorInvalidInput)
	}
	if err != nil {
		return nil, csvError(err)
	}

	columns := make([]string, len(header))
	hasSupplierCode := false
	for index, name := range header {
		columns[index] = csvColumns[strings.ToLower(strings.TrimSpace(name))]
		if columns[index] == fieldSupplierCode {
			hasSupplierCode = true
		}
	}
	if !hasSupplierCode {
		return nil, fmt.Errorf("%w: missing cod_prov column", ErrorInvalidInput)
	}

	records := make([]RawRecord, 0)
	for {
		cells, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		if blankRow(cells) {
			continue
		}
		if len(cells) > len(columns) {
			return nil, atIndex(newValidationError("fila", "tiene más columnas que el encabezado"), len(records)+1)
		}

		record := make(RawRecord, len(columns))
		for index, cell := range cells {
			if columns[index] == "" {
				continue
			}
			record[columns[index]] = strings.TrimSpace(cell)
		}
		records = append(records, record)
	}

	return records, nil
}

func decodeCharset(reader io.Reader, charset string) (io.Reader, error) {
	charset = strings.TrimSpace(charset)
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return reader, nil
	}

	encoding, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported charset %q", ErrorInvalidInput, charset)
	}
	return transform.NewReader(reader, encoding.NewDecoder()), nil
}

// csvError marca como entrada inválida los errores de formato; los de lectura pasan tal cual.
func csvError(err error) error {
	var parseError *csv.ParseError
	if errors.As(err, &parseError) {
		return fmt.Errorf("%w: %v", ErrorInvalidInput, parseError)
	}
	return err
}

func blankRow(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
