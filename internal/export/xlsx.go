package export

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/blewis-maker/Katapult-Automation/internal/aggregate"
)

// WorkbookName is the file name of the master report.
const WorkbookName = "master_report.xlsx"

// WriteWorkbook writes every layer as a sheet of <dir>/master_report.xlsx. The
// header row carries the long column names.
func WriteWorkbook(dir string, layers []aggregate.Layer) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrap(err, "xlsx: create output dir")
	}

	f := xlsx.NewFile()
	for _, l := range layers {
		sheet, err := f.AddSheet(l.Name)
		if err != nil {
			return "", eris.Wrapf(err, "xlsx: add sheet %s", l.Name)
		}

		header := sheet.AddRow()
		for _, c := range l.Columns {
			header.AddCell().SetString(c.Name)
		}

		for _, feat := range l.Features {
			row := sheet.AddRow()
			for j, c := range l.Columns {
				cell := row.AddCell()
				if v, ok := feat.Values[j].(float64); ok && c.Kind == aggregate.KindFloat {
					cell.SetFloat(v)
					continue
				}
				cell.SetString(aggregate.FormatValue(feat.Values[j]))
			}
		}
	}

	path := filepath.Join(dir, WorkbookName)
	if err := f.Save(path); err != nil {
		return "", eris.Wrapf(err, "xlsx: save %s", path)
	}

	zap.L().Info("export: wrote workbook", zap.String("path", path), zap.Int("sheets", len(layers)))
	return path, nil
}

// ReadSheet returns every row of the named sheet as strings, header included.
func ReadSheet(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, ok := f.Sheet[sheetName]
	if !ok {
		return nil, eris.Errorf("xlsx: sheet %q not found", sheetName)
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}
