package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gyeh/npi-lookup/internal/worker"
	"github.com/klauspost/pgzip"
	"github.com/olekukonko/tablewriter"
)

// CSV download metadata.
const (
	CSVFileName    = "npi_results.csv"
	CSVContentType = "text/csv"
)

// Header is the column order shared by the CSV export and the terminal table.
var Header = []string{"NPI", "Name", "Phone", "Status", "Error"}

func record(r worker.Row) []string {
	return []string{r.NPI, r.Name, r.Phone, string(r.Status), r.Error}
}

// WriteCSV writes rows as UTF-8 CSV with a header row and no index column.
func WriteCSV(w io.Writer, rows []worker.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range rows {
		if err := cw.Write(record(r)); err != nil {
			return fmt.Errorf("writing CSV row for %s: %w", r.NPI, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// EncodeCSV returns the CSV export of rows.
func EncodeCSV(rows []worker.Row) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTable renders rows as a terminal table.
func WriteTable(w io.Writer, rows []worker.Row) error {
	table := tablewriter.NewWriter(w)
	table.Header(Header)
	for _, r := range rows {
		if err := table.Append(record(r)); err != nil {
			return fmt.Errorf("adding table row for %s: %w", r.NPI, err)
		}
	}
	return table.Render()
}

// WriteResults writes rows in the given format ("csv" or "table") to
// outputPath. "-" writes to stdout; a ".gz" suffix gzip-compresses the file.
func WriteResults(outputPath, format string, rows []worker.Row) error {
	if outputPath == "-" {
		return write(os.Stdout, format, rows)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()

	if !strings.HasSuffix(outputPath, ".gz") {
		if err := write(f, format, rows); err != nil {
			return err
		}
		return f.Close()
	}

	gz := pgzip.NewWriter(f)
	if err := write(gz, format, rows); err != nil {
		gz.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("compressing output: %w", err)
	}
	return f.Close()
}

func write(w io.Writer, format string, rows []worker.Row) error {
	switch format {
	case "csv":
		return WriteCSV(w, rows)
	case "table":
		return WriteTable(w, rows)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
