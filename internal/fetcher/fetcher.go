package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format is a supported tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Errorf("fetcher: unsupported file type %q", filepath.Ext(path))
	}
}

// StreamFile streams the rows of the CSV or XLSX file at path. The first
// non-blank row is treated as the header and sent to headerCh, which
// must be buffered or read concurrently.
func StreamFile(ctx context.Context, path string, headerCh chan<- []string) (<-chan []string, <-chan error, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}

	switch format {
	case FormatXLSX:
		rows, errs := StreamXLSX(ctx, path, XLSXOptions{HasHeader: true, HeaderCh: headerCh})
		return rows, errs, nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "fetcher: open %s", path)
		}
		rows, errs := streamCSV(ctx, f, f, CSVOptions{
			HasHeader:  true,
			HeaderCh:   headerCh,
			LazyQuotes: true,
			TrimSpace:  true,
		})
		return rows, errs, nil
	}
}
