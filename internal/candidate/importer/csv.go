// Package importer stages candidate records from collector exports.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/pricewatch/internal/candidate/domain"
	"go.uber.org/zap"
)

// Columns are matched by header name, in any order. Only ext_id, name and
// price are required; source falls back to the loader default.
const (
	colSource   = "source"
	colExtID    = "ext_id"
	colName     = "name"
	colEAN      = "ean"
	colSizeText = "size_text"
	colBrand    = "brand"
	colPrice    = "price"
	colCurrency = "currency"
)

var requiredColumns = []string{colExtID, colName, colPrice}

var ErrMissingColumn = errors.New("missing_column")

type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type Summary struct {
	Rows    int        `json:"rows"`
	Staged  int        `json:"staged"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors,omitempty"`
}

type Loader struct {
	svc           domain.Service
	log           *zap.Logger
	defaultSource string
}

func NewLoader(svc domain.Service, log *zap.Logger, defaultSource string) *Loader {
	return &Loader{
		svc:           svc,
		log:           log.Named("candidate.importer"),
		defaultSource: strings.TrimSpace(defaultSource),
	}
}

// Load submits every row of r. Rows the candidate service rejects are
// skipped and reported; any other failure stops the load.
func (l *Loader) Load(ctx context.Context, r io.Reader) (Summary, error) {
	var summary Summary

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		return summary, fmt.Errorf("read header: %w", err)
	}
	index := headerIndex(header)
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return summary, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				summary.Rows++
				summary.skip(parseErr.Line, "malformed_row")
				continue
			}
			return summary, fmt.Errorf("read row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		summary.Rows++
		line, _ := reader.FieldPos(0)

		req, reason := l.buildRequest(index, record)
		if reason != "" {
			summary.skip(line, reason)
			continue
		}

		if _, err := l.svc.Submit(ctx, req); err != nil {
			if isRejection(err) {
				summary.skip(line, err.Error())
				continue
			}
			return summary, fmt.Errorf("line %d: %w", line, err)
		}
		summary.Staged++
	}

	l.log.Info("candidate file loaded",
		zap.Int("rows", summary.Rows),
		zap.Int("staged", summary.Staged),
		zap.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (l *Loader) buildRequest(index map[string]int, record []string) (domain.SubmitRequest, string) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	source := field(colSource)
	if source == "" {
		source = l.defaultSource
	}

	rawPrice := strings.ReplaceAll(field(colPrice), ",", ".")
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		return domain.SubmitRequest{}, domain.ErrInvalidPrice.Error()
	}

	return domain.SubmitRequest{
		Source:       source,
		ExternalID:   field(colExtID),
		Name:         field(colName),
		NormalizedID: optional(field(colEAN)),
		SizeText:     optional(field(colSizeText)),
		Brand:        optional(field(colBrand)),
		Price:        price,
		Currency:     field(colCurrency),
	}, ""
}

func (s *Summary) skip(line int, reason string) {
	s.Skipped++
	s.Errors = append(s.Errors, RowError{Line: line, Reason: reason})
}

func headerIndex(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}
	return index
}

func isRejection(err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrInvalidExternalID),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidPrice),
		errors.Is(err, domain.ErrInvalidCurrency):
		return true
	default:
		return false
	}
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
