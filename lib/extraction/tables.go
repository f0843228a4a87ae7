// Copyright 2025 CurioAI, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package extraction

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is one extracted table. Headers come from the first row.
type Table struct {
	Name    string     `json:"name,omitempty"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Tables extracts tables from the file. Supported types: excel (one table
// per sheet), csv, pdf (whitespace-column heuristic, best effort).
func Tables(path, fileType string) ([]Table, error) {
	if fileType == "" {
		fileType = FileTypeFor(path)
	}
	switch fileType {
	case "excel", "xlsx":
		return excelTables(path)
	case "csv":
		return csvTables(path)
	case "pdf":
		text, err := pdfText(path)
		if err != nil {
			return nil, err
		}
		return textTables(text), nil
	default:
		return nil, fmt.Errorf("unsupported file type for table extraction: %s", fileType)
	}
}

func excelTables(path string) ([]Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook %s: %w", path, err)
	}
	defer f.Close()

	var tables []Table
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		tables = append(tables, Table{
			Name:    sheet,
			Headers: rows[0],
			Rows:    rows[1:],
		})
	}
	return tables, nil
}

func csvTables(path string) ([]Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing csv %s: %w", path, err)
	}
	if len(records) == 0 {
		return []Table{}, nil
	}
	return []Table{{Headers: records[0], Rows: records[1:]}}, nil
}

var columnGap = regexp.MustCompile(`\s{2,}|\t`)

// textTables recovers column-aligned tables from plain text. Consecutive
// lines splitting into the same column count (>1) form one table. Known
// heuristic; PDFs carry no real table structure.
func textTables(text string) []Table {
	var tables []Table
	var current [][]string

	flush := func() {
		if len(current) >= 2 {
			tables = append(tables, Table{Headers: current[0], Rows: current[1:]})
		}
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		cells := columnGap.Split(strings.TrimSpace(line), -1)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if len(cells) < 2 || cells[0] == "" {
			flush()
			continue
		}
		if len(current) > 0 && len(current[0]) != len(cells) {
			flush()
		}
		current = append(current, cells)
	}
	flush()
	return tables
}
