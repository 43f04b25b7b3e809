// Package fetcher streams the rows of tabular exports (CSV and XLSX) so
// large precinct dumps never have to sit in memory as a whole.
package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

const utf8BOM = "\ufeff"

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	// Delimiter separates fields. Zero sniffs ',' or ';' from the first line,
	// since spreadsheet exports in pt-BR locales use semicolons.
	Delimiter rune
	// HasHeader sends the first row to HeaderCh instead of the row channel.
	HasHeader  bool
	HeaderCh   chan<- []string
	Comment    rune
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV parses r and sends rows to the returned channel. The caller
// must drain the row channel; a read error is sent on the error channel.
// Both channels are closed when parsing stops.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	return streamCSV(ctx, r, nil, opts)
}

func streamCSV(ctx context.Context, r io.Reader, closer io.Closer, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)
		if closer != nil {
			defer closer.Close() //nolint:errcheck
		}

		br := bufio.NewReader(r)
		if opts.Delimiter == 0 {
			opts.Delimiter = sniffDelimiter(br)
		}
		reader := csv.NewReader(br)
		reader.Comma = opts.Delimiter
		reader.Comment = opts.Comment
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		first := true
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if first && len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], utf8BOM)
			}
			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			if first && opts.HasHeader {
				first = false
				if opts.HeaderCh != nil {
					select {
					case opts.HeaderCh <- record:
					case <-ctx.Done():
						errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled sending header")
						return
					}
				}
				continue
			}
			first = false

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// sniffDelimiter picks ';' when the first line has more semicolons than
// commas. It only peeks, so br still yields the whole input.
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(4096)
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
