package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Vedant23258/AgrisIntelligence/internal/models"
)

const maxRejections = 100

var ErrEmptyFile = errors.New("file has no data rows")

type MissingColumnsError struct {
	Kind    string
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s file is missing required columns: %s", e.Kind, strings.Join(e.Missing, ", "))
}

// RejectionError carries the first rows that failed to parse. Total counts all of them.
type RejectionError struct {
	Kind       string
	Total      int
	Rejections []models.Rejection
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s file has %d invalid rows", e.Kind, e.Total)
}

type Batch[T any] struct {
	Records   []T
	Columns   []string
	Products  int
	DateStart time.Time
	DateEnd   time.Time
}

type column struct {
	name     string
	aliases  []string
	required bool
}

var retailColumns = []column{
	{name: "date", aliases: []string{"date", "day", "sale_date"}, required: true},
	{name: "product", aliases: []string{"product", "item", "commodity"}, required: true},
	{name: "sales_quantity", aliases: []string{"sales_quantity", "quantity", "qty", "sales", "volume"}, required: true},
	{name: "sales_value", aliases: []string{"sales_value", "value", "amount", "revenue"}},
}

var mandiColumns = []column{
	{name: "date", aliases: []string{"date", "day", "arrival_date"}, required: true},
	{name: "product", aliases: []string{"product", "item", "commodity"}, required: true},
	{name: "price", aliases: []string{"price", "modal_price", "rate", "value", "cost"}, required: true},
	{name: "location", aliases: []string{"location", "mandi", "market"}},
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func ParseRetail(r io.Reader) (*Batch[models.RetailRecord], error) {
	return parse(r, "retail", retailColumns, func(row map[string]string) (models.RetailRecord, *models.Rejection) {
		var rec models.RetailRecord
		var rej *models.Rejection
		if rec.Date, rej = parseDate(row["date"]); rej != nil {
			return rec, rej
		}
		rec.Product = normalizeProduct(row["product"])
		if rec.SalesQuantity, rej = parseNumber("sales_quantity", row["sales_quantity"]); rej != nil {
			return rec, rej
		}
		if v, ok := row["sales_value"]; ok && strings.TrimSpace(v) != "" {
			if rec.SalesValue, rej = parseNumber("sales_value", v); rej != nil {
				return rec, rej
			}
		}
		return rec, nil
	}, func(rec models.RetailRecord) (string, time.Time) { return rec.Product, rec.Date })
}

func ParseMandi(r io.Reader) (*Batch[models.MandiRecord], error) {
	return parse(r, "mandi", mandiColumns, func(row map[string]string) (models.MandiRecord, *models.Rejection) {
		var rec models.MandiRecord
		var rej *models.Rejection
		if rec.Date, rej = parseDate(row["date"]); rej != nil {
			return rec, rej
		}
		rec.Product = normalizeProduct(row["product"])
		if rec.Price, rej = parseNumber("price", row["price"]); rej != nil {
			return rec, rej
		}
		rec.Location = strings.TrimSpace(row["location"])
		return rec, nil
	}, func(rec models.MandiRecord) (string, time.Time) { return rec.Product, rec.Date })
}

func parse[T any](
	r io.Reader,
	kind string,
	cols []column,
	build func(map[string]string) (T, *models.Rejection),
	key func(T) (string, time.Time),
) (*Batch[T], error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s header: %w", kind, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index, missing := resolveColumns(header, cols)
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Kind: kind, Missing: missing}
	}

	batch := &Batch[T]{Columns: append([]string(nil), header...)}
	rejected := &RejectionError{Kind: kind}
	reject := func(rej models.Rejection) {
		rejected.Total++
		if len(rejected.Rejections) < maxRejections {
			rejected.Rejections = append(rejected.Rejections, rej)
		}
	}
	products := map[string]bool{}

	// rows are numbered by file line, so the header is row 1
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				reject(models.Rejection{Row: pe.StartLine, Reason: pe.Err.Error()})
				continue
			}
			return nil, fmt.Errorf("reading %s rows: %w", kind, err)
		}
		rowNum, _ := cr.FieldPos(0)
		if blank(fields) {
			continue
		}
		row := make(map[string]string, len(index))
		for name, i := range index {
			if i < len(fields) {
				row[name] = strings.TrimSpace(fields[i])
			}
		}

		rec, rej := build(row)
		if rej != nil {
			rej.Row = rowNum
			reject(*rej)
			continue
		}
		if err := validate.Struct(rec); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				return nil, fmt.Errorf("validating %s row %d: %w", kind, rowNum, err)
			}
			for _, fe := range verrs {
				reject(models.Rejection{Row: rowNum, Column: fe.Field(), Reason: reasonFor(fe)})
			}
			continue
		}

		product, date := key(rec)
		products[product] = true
		if batch.DateStart.IsZero() || date.Before(batch.DateStart) {
			batch.DateStart = date
		}
		if date.After(batch.DateEnd) {
			batch.DateEnd = date
		}
		batch.Records = append(batch.Records, rec)
	}

	if rejected.Total > 0 {
		return nil, rejected
	}
	if len(batch.Records) == 0 {
		return nil, ErrEmptyFile
	}
	batch.Products = len(products)
	return batch, nil
}

// resolveColumns maps canonical column names to header positions. Aliases are
// tried in order and matched case-insensitively.
func resolveColumns(header []string, cols []column) (map[string]int, []string) {
	positions := map[string]int{}
	for i, h := range header {
		k := strings.ToLower(strings.TrimSpace(h))
		k = strings.ReplaceAll(k, " ", "_")
		if _, seen := positions[k]; !seen {
			positions[k] = i
		}
	}
	index := map[string]int{}
	var missing []string
	for _, c := range cols {
		found := false
		for _, alias := range c.aliases {
			if i, ok := positions[alias]; ok {
				index[c.name] = i
				found = true
				break
			}
		}
		if !found && c.required {
			missing = append(missing, c.name)
		}
	}
	return index, missing
}

func parseDate(s string) (time.Time, *models.Rejection) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &models.Rejection{Column: "date", Reason: "date is empty"}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			// keep the calendar day as written, whatever the offset
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, &models.Rejection{Column: "date", Reason: fmt.Sprintf("unrecognised date %q", s)}
}

func parseNumber(col, s string) (float64, *models.Rejection) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	s = strings.TrimPrefix(s, "₹")
	if s == "" {
		return 0, &models.Rejection{Column: col, Reason: col + " is empty"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &models.Rejection{Column: col, Reason: fmt.Sprintf("%q is not a number", s)}
	}
	return v, nil
}

func normalizeProduct(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fe.Field() + " must not be negative"
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
