package reports

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sitereport/pkg/domain"
)

// WriteCSV flattens every content item of the tree into one CSV block: a
// title line naming the section path and item, the column header and the
// rows. Blocks are separated by an empty line. Subtables collapse to a row
// count and data cells to their JSON encoding.
func WriteCSV(root *domain.Section) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	first := true
	var walk func(s *domain.Section, path []string) error
	walk = func(s *domain.Section, path []string) error {
		path = append(path, s.Title)
		for _, item := range s.Contents {
			if !first {
				if err := writer.Write(nil); err != nil {
					return err
				}
			}
			first = false
			if err := writeBlock(writer, strings.Join(path, " / "), item); err != nil {
				return err
			}
		}
		for _, child := range s.Sections {
			if err := walk(child, path); err != nil {
				return err
			}
		}
		return nil
	}
	if root != nil {
		if err := walk(root, nil); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBlock(writer *csv.Writer, path string, item domain.ContentItem) error {
	if err := writer.Write([]string{path, item.Title}); err != nil {
		return err
	}
	if err := writer.Write(item.Data.ColumnTitles()); err != nil {
		return err
	}
	for _, row := range item.Data.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func formatCell(c domain.Cell) string {
	switch c.Type {
	case domain.CellSubtable:
		if c.Table == nil {
			return ""
		}
		return fmt.Sprintf("[%d rows]", len(c.Table.Rows))
	case domain.CellData:
		raw, err := json.Marshal(c.Value)
		if err != nil {
			return fmt.Sprint(c.Value)
		}
		return string(raw)
	default:
		return formatValue(c.Value)
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	case float32:
		return fmt.Sprintf("%g", v)
	case float64:
		return fmt.Sprintf("%g", v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	default:
		return fmt.Sprint(v)
	}
}
