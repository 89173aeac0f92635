package resource

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/broady/reskit/field"
)

// ExportFormat selects the Export encoding.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ContentType returns the MIME type for the format.
func (f ExportFormat) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

type exportColumn struct {
	Column
	render field.Renderer
}

// Export writes the records matching params to w as CSV or JSON.
//
// Columns come from Options.Columns, or else from the list view fields.
// Column keys are dotted paths into the JSON form of a record. In CSV,
// arrays are joined with ", ", objects are written as JSON and missing or
// null values are empty. JSON output is an array of objects keyed by header.
func (r *Resource[T]) Export(ctx context.Context, w io.Writer, format ExportFormat, params GetManyParams) error {
	if format != FormatCSV && format != FormatJSON {
		return fmt.Errorf("export %s: unsupported format %q", r.meta.Name, format)
	}
	res, err := r.getMany(ctx, params)
	if err != nil {
		return fmt.Errorf("export %s: %w", r.meta.Name, err)
	}

	rows := make([][]byte, len(res.Data))
	for i := range res.Data {
		if rows[i], err = json.Marshal(res.Data[i]); err != nil {
			return fmt.Errorf("export %s: %w", r.meta.Name, err)
		}
	}

	cols := r.exportColumns()
	if format == FormatJSON {
		return writeJSON(w, rows, cols)
	}
	return writeCSV(w, rows, cols)
}

func (r *Resource[T]) exportColumns() []exportColumn {
	if len(r.meta.Columns) > 0 {
		out := make([]exportColumn, len(r.meta.Columns))
		for i, c := range r.meta.Columns {
			out[i] = exportColumn{Column: c}
		}
		return out
	}
	fields := r.Fields(field.ViewList)
	out := make([]exportColumn, len(fields))
	for i, f := range fields {
		out[i] = exportColumn{Column: Column{Key: f.Key, Header: f.Label}, render: f.Render}
	}
	return out
}

func writeCSV(w io.Writer, rows [][]byte, cols []exportColumn) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, c := range cols {
			v := gjson.GetBytes(row, c.Key)
			if c.render != nil {
				record[i] = c.render(v.Value())
			} else {
				record[i] = formatValue(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v gjson.Result) string {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return ""
	case v.IsArray():
		parts := make([]string, 0, len(v.Array()))
		for _, el := range v.Array() {
			parts = append(parts, formatValue(el))
		}
		return strings.Join(parts, ", ")
	case v.IsObject():
		return v.Raw
	default:
		return v.String()
	}
}

func writeJSON(w io.Writer, rows [][]byte, cols []exportColumn) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, c := range cols {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(c.Header)
			buf.Write(key)
			buf.WriteByte(':')
			if v := gjson.GetBytes(row, c.Key); v.Exists() {
				buf.WriteString(v.Raw)
			} else {
				buf.WriteString("null")
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
