package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ferrwyn/autocompleted/pkg/search"
)

// Columns required by the two dump formats. The header row fixes the column
// order; extra columns are ignored, a missing required column fails the
// read before any row is consumed.
var (
	tagColumns   = []string{"id", "name", "category", "post_count"}
	aliasColumns = []string{"id", "antecedent_name", "consequent_name", "status", "post_count"}
)

// ReadTags parses a tag dump in CSV form into domain records. Rows are not
// filtered here; counts of zero and odd categories load as-is and the query
// layer applies its own floors.
func ReadTags(r io.Reader) ([]search.Tag, error) {
	rows, cols, err := readDump(r, tagColumns)
	if err != nil {
		return nil, err
	}

	tags := make([]search.Tag, 0, len(rows))
	for i, row := range rows {
		id, err := parseInt32(row[cols["id"]])
		if err != nil {
			return nil, fmt.Errorf("tags row %d: id: %w", i+2, err)
		}
		count, err := parseInt32(row[cols["post_count"]])
		if err != nil {
			return nil, fmt.Errorf("tags row %d: post_count: %w", i+2, err)
		}
		category, err := parseInt16(row[cols["category"]])
		if err != nil {
			return nil, fmt.Errorf("tags row %d: category: %w", i+2, err)
		}
		name := row[cols["name"]]
		if name == "" {
			return nil, fmt.Errorf("tags row %d: empty name", i+2)
		}
		tags = append(tags, search.Tag{
			ID:        id,
			Name:      name,
			PostCount: count,
			Category:  category,
		})
	}
	return tags, nil
}

// ReadAliases parses an alias dump in CSV form. Status values are folded to
// lowercase so dumps with mixed-case lifecycle names still filter correctly.
func ReadAliases(r io.Reader) ([]search.Alias, error) {
	rows, cols, err := readDump(r, aliasColumns)
	if err != nil {
		return nil, err
	}

	aliases := make([]search.Alias, 0, len(rows))
	for i, row := range rows {
		id, err := parseInt32(row[cols["id"]])
		if err != nil {
			return nil, fmt.Errorf("aliases row %d: id: %w", i+2, err)
		}
		count, err := parseInt32(row[cols["post_count"]])
		if err != nil {
			return nil, fmt.Errorf("aliases row %d: post_count: %w", i+2, err)
		}
		antecedent := row[cols["antecedent_name"]]
		consequent := row[cols["consequent_name"]]
		if antecedent == "" || consequent == "" {
			return nil, fmt.Errorf("aliases row %d: empty name", i+2)
		}
		aliases = append(aliases, search.Alias{
			ID:             id,
			AntecedentName: antecedent,
			ConsequentName: consequent,
			Status:         search.AliasStatus(strings.ToLower(row[cols["status"]])),
			PostCount:      count,
		})
	}
	return aliases, nil
}

// readDump reads a whole CSV dump and maps the required column names to
// their positions from the header row.
func readDump(r io.Reader, required []string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty dump: missing header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("dump is missing required column %q", name)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading rows: %w", err)
	}
	return rows, cols, nil
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

func parseInt16(s string) (int16, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, err
	}
	return int16(v), nil
}
