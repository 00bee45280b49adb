// Package export writes stored source partitions to spreadsheet files.
package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/benny59/architetti/internal/model"
	"github.com/benny59/architetti/internal/store"
)

var headers = []string{"ID", "Titolo", "Data", "Categoria", "Descrizione", "URL", "Checksum"}

// Records writes the stored records of one source as an xlsx workbook to w.
// The sheet is named after the source and rows are newest first.
func Records(ctx context.Context, st store.Store, nickname string, w io.Writer) (int, error) {
	records, err := st.Records(ctx, nickname, 0)
	if err != nil {
		return 0, fmt.Errorf("load records for %s: %w", nickname, err)
	}

	f, err := Workbook(nickname, records)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return 0, fmt.Errorf("write workbook: %w", err)
	}
	return len(records), nil
}

// Workbook builds an in-memory workbook with a single sheet of records.
func Workbook(sheet string, records []model.Record) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := setRow(f, sheet, 1, headers); err != nil {
		f.Close()
		return nil, err
	}

	for i, rec := range records {
		row := []any{rec.ID, rec.Title, rec.Date, rec.Category, rec.Summary, rec.URL, rec.Checksum}
		if err := setRow(f, sheet, i+2, row); err != nil {
			f.Close()
			return nil, err
		}
		if rec.HasURL() {
			cell, _ := excelize.CoordinatesToCellName(6, i+2)
			if err := f.SetCellHyperLink(sheet, cell, rec.URL, "External"); err != nil {
				f.Close()
				return nil, fmt.Errorf("link %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		f.Close()
		return nil, fmt.Errorf("freeze header: %w", err)
	}
	return f, nil
}

func setRow[T any](f *excelize.File, sheet string, row int, values []T) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}
