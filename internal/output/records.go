package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/nutrition-scraper/internal/model"
)

// Supported record formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

// RecordWriter persists a complete record list, replacing earlier output.
// It returns the paths it wrote.
type RecordWriter interface {
	WriteRecords(records []model.NutritionRecord) ([]string, error)
}

// CSVWriter writes records as CSV with a header row.
type CSVWriter struct {
	Path string
}

// WriteRecords implements RecordWriter.
func (w CSVWriter) WriteRecords(records []model.NutritionRecord) ([]string, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	enc := csvutil.NewEncoder(cw)
	if err := enc.EncodeHeader(model.NutritionRecord{}); err != nil {
		return nil, eris.Wrap(err, "output: csv header")
	}
	if len(records) > 0 {
		if err := enc.Encode(records); err != nil {
			return nil, eris.Wrap(err, "output: csv encode")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, eris.Wrap(err, "output: csv flush")
	}

	if err := writeFile(w.Path, buf.Bytes()); err != nil {
		return nil, err
	}
	return []string{w.Path}, nil
}

// JSONWriter writes records as an indented JSON array.
type JSONWriter struct {
	Path string
}

// WriteRecords implements RecordWriter.
func (w JSONWriter) WriteRecords(records []model.NutritionRecord) ([]string, error) {
	if records == nil {
		records = []model.NutritionRecord{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, eris.Wrap(err, "output: json encode")
	}

	if err := writeFile(w.Path, buf.Bytes()); err != nil {
		return nil, err
	}
	return []string{w.Path}, nil
}

// XLSXWriter writes records to a single worksheet.
type XLSXWriter struct {
	Path  string
	Sheet string
}

// WriteRecords implements RecordWriter.
func (w XLSXWriter) WriteRecords(records []model.NutritionRecord) ([]string, error) {
	sheetName := w.Sheet
	if sheetName == "" {
		sheetName = "nutricional"
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return nil, eris.Wrap(err, "output: xlsx add sheet")
	}

	header := sheet.AddRow()
	for _, col := range model.RecordColumns {
		header.AddCell().SetString(col)
	}
	for _, r := range records {
		row := sheet.AddRow()
		for _, v := range r.Row() {
			cell := row.AddCell()
			switch v := v.(type) {
			case string:
				cell.SetString(v)
			case int:
				cell.SetInt(v)
			case float64:
				cell.SetFloat(v)
			default:
				cell.SetValue(v)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, eris.Wrap(err, "output: xlsx encode")
	}
	if err := writeFile(w.Path, buf.Bytes()); err != nil {
		return nil, err
	}
	return []string{w.Path}, nil
}

// MultiWriter writes the same records through every writer in order and
// stops at the first failure.
type MultiWriter []RecordWriter

// WriteRecords implements RecordWriter.
func (m MultiWriter) WriteRecords(records []model.NutritionRecord) ([]string, error) {
	var paths []string
	for _, w := range m {
		written, err := w.WriteRecords(records)
		if err != nil {
			return paths, err
		}
		paths = append(paths, written...)
	}
	return paths, nil
}

// NewRecordWriter returns a writer producing dir/base.<format> for each of
// formats. An extension on base is ignored. No formats means CSV only.
func NewRecordWriter(dir, base string, formats []string) (RecordWriter, error) {
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" {
		return nil, eris.New("output: records file name is required")
	}
	if len(formats) == 0 {
		formats = []string{FormatCSV}
	}

	var mw MultiWriter
	seen := make(map[string]bool, len(formats))
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if seen[format] {
			continue
		}
		seen[format] = true

		path := filepath.Join(dir, base+"."+format)
		switch format {
		case FormatCSV:
			mw = append(mw, CSVWriter{Path: path})
		case FormatJSON:
			mw = append(mw, JSONWriter{Path: path})
		case FormatXLSX:
			mw = append(mw, XLSXWriter{Path: path})
		default:
			return nil, eris.Errorf("output: unsupported record format %q", format)
		}
	}
	return mw, nil
}
