package stocks

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/theimaginaryfoundation/transcript-analyzer/analysis/fileutils"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Stock Opinions"

// WriteJSON writes stocks as an indented JSON array.
func WriteJSON(path string, stocks []Stock) error {
	if stocks == nil {
		stocks = []Stock{}
	}
	return fileutils.WriteJSONFileAtomic(path, stocks)
}

// WriteText writes a plain report sorted by name: one underlined heading per
// stock and one bullet per opinion.
func WriteText(w io.Writer, stocks []Stock) error {
	sorted := append([]Stock(nil), stocks...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	b.WriteString("STOCK OPINIONS ANALYSIS\n")
	b.WriteString("======================\n\n")
	for _, s := range sorted {
		heading := s.Name
		if s.Ticker != "" {
			heading += " (" + s.Ticker + ")"
		}
		b.WriteString(heading + "\n")
		b.WriteString(strings.Repeat("-", len([]rune(heading))) + "\n")
		for _, o := range s.Opinions {
			fmt.Fprintf(&b, "• %s (Chunk %d)\n", o.Text, o.Chunk)
		}
		b.WriteString("\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteTextFile writes the text report to path atomically.
func WriteTextFile(path string, stocks []Stock) error {
	var b strings.Builder
	if err := WriteText(&b, stocks); err != nil {
		return err
	}
	return fileutils.WriteFileAtomicSameDir(path, []byte(b.String()), 0o644)
}

// WriteXLSX writes one spreadsheet row per opinion.
func WriteXLSX(path string, stocks []Stock) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := []any{"Name", "Ticker", "Opinion", "Chunk"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, s := range stocks {
		for _, o := range s.Opinions {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []any{s.Name, s.Ticker, o.Text, o.Chunk}
			if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}
	if err := f.SetColWidth(sheetName, "C", "C", 80); err != nil {
		return err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode xlsx: %w", err)
	}
	return fileutils.WriteFileAtomicSameDir(path, buf.Bytes(), 0o644)
}
