package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var ErrEmptyCatalog = errors.New("catalog has no valid items")
var ErrMissingColumn = errors.New("catalog header missing required column")
var ErrInvalidRow = errors.New("invalid catalog row")
var ErrDuplicateRow = errors.New("duplicate catalog row")

type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
	StatusUnsold    Status = "unsold"
)

// Item is one auctionable entry. Only Status, SoldTo and SoldPrice change
// after loading.
type Item struct {
	ID        int    `json:"id"`
	Serial    string `json:"serial"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Archetype string `json:"archetype"`
	BaseScore int    `json:"baseScore"`
	BasePrice int64  `json:"basePrice"`

	Status    Status `json:"status"`
	SoldTo    int    `json:"soldTo,omitempty"`
	SoldPrice int64  `json:"soldPrice,omitempty"`
}

// Result is a loaded catalog. Warnings combines one error per dropped row
// (see multierr.Errors) and is nil when every row was accepted.
type Result struct {
	Items    []Item
	Warnings error
}

var requiredColumns = []string{"serial", "name", "role", "archetype", "score", "price"}

func LoadFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a CSV catalog. The header row names the columns; order does not
// matter and unknown columns are ignored.
func Load(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Result{}, ErrEmptyCatalog
		}
		return Result{}, fmt.Errorf("read catalog header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := cols[c]; !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}

	var res Result
	seen := map[string]bool{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Result{}, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		field := func(name string) string {
			i := cols[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		item, err := parseRow(field)
		if err != nil {
			res.Warnings = multierr.Append(res.Warnings, fmt.Errorf("line %d: %w", line, err))
			continue
		}

		key := "serial:" + item.Serial
		if item.Serial == "" {
			key = "name:" + strings.ToLower(item.Name)
		}
		if seen[key] {
			res.Warnings = multierr.Append(res.Warnings, fmt.Errorf("line %d: %w: %s", line, ErrDuplicateRow, item.Name))
			continue
		}
		seen[key] = true

		item.ID = len(res.Items) + 1
		res.Items = append(res.Items, item)
	}

	if len(res.Items) == 0 {
		return res, ErrEmptyCatalog
	}
	return res, nil
}

func parseRow(field func(string) string) (Item, error) {
	item := Item{
		Serial:    field("serial"),
		Name:      field("name"),
		Role:      field("role"),
		Archetype: field("archetype"),
		Status:    StatusAvailable,
	}
	if item.Name == "" {
		return Item{}, fmt.Errorf("%w: missing name", ErrInvalidRow)
	}
	if item.Archetype == "" {
		return Item{}, fmt.Errorf("%w: %s: missing archetype", ErrInvalidRow, item.Name)
	}

	score, err := parseNumber(field("score"))
	if err != nil || score <= 0 {
		return Item{}, fmt.Errorf("%w: %s: score must be positive", ErrInvalidRow, item.Name)
	}
	price, err := parseNumber(field("price"))
	if err != nil || price <= 0 {
		return Item{}, fmt.Errorf("%w: %s: price must be positive", ErrInvalidRow, item.Name)
	}
	item.BaseScore = int(score)
	item.BasePrice = price
	return item, nil
}

// parseNumber accepts plain integers and thousands-grouped ones ("1,000,000").
func parseNumber(s string) (int64, error) {
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	return strconv.ParseInt(s, 10, 64)
}
