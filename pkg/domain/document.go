package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidTable reports a table whose rows do not match its columns.
var ErrInvalidTable = errors.New("invalid table")

// Section is a titled node of the analysis document. Name is the section key
// (the method id for module sections).
type Section struct {
	Name              string        `json:"name"`
	Title             string        `json:"title"`
	MethodDescription string        `json:"method_description,omitempty"`
	Collapsed         bool          `json:"collapsed"`
	Warning           bool          `json:"warning,omitempty"`
	WarningText       string        `json:"warning_text,omitempty"`
	Contents          []ContentItem `json:"contents"`
	Sections          []*Section    `json:"sections,omitempty"`
}

// AddContent appends a content item.
func (s *Section) AddContent(item ContentItem) {
	s.Contents = append(s.Contents, item)
}

// Empty reports whether the section has neither contents nor children.
func (s *Section) Empty() bool {
	return len(s.Contents) == 0 && len(s.Sections) == 0
}

// FindContent returns the content item with the given name.
func (s *Section) FindContent(name string) (*ContentItem, bool) {
	for i := range s.Contents {
		if s.Contents[i].Name == name {
			return &s.Contents[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy of the section subtree.
func (s *Section) Clone() *Section {
	if s == nil {
		return nil
	}
	out := *s
	if s.Contents != nil {
		out.Contents = make([]ContentItem, len(s.Contents))
		for i, c := range s.Contents {
			out.Contents[i] = c.Clone()
		}
	}
	if s.Sections != nil {
		out.Sections = make([]*Section, len(s.Sections))
		for i, child := range s.Sections {
			out.Sections[i] = child.Clone()
		}
	}
	return &out
}

// ContentItem is one renderable dataset presentation.
type ContentItem struct {
	Name             string         `json:"name"`
	Title            string         `json:"title"`
	DatasetReference string         `json:"dataset_reference,omitempty"`
	DatasetContacts  string         `json:"dataset_contacts,omitempty"`
	Data             Table          `json:"data"`
	RenderOptions    []RenderOption `json:"render_options"`
}

// Clone returns a deep copy of the item.
func (c ContentItem) Clone() ContentItem {
	out := c
	out.Data = c.Data.Clone()
	if c.RenderOptions != nil {
		out.RenderOptions = make([]RenderOption, len(c.RenderOptions))
		for i, ro := range c.RenderOptions {
			out.RenderOptions[i] = ro.Clone()
		}
	}
	return out
}

// Column data types.
const (
	DataTypeNumber    = "number"
	DataTypeString    = "string"
	DataTypeSubtable  = "subtable"
	DataTypeComponent = "component"
)

// Column describes one table column.
type Column struct {
	Title    string `json:"title"`
	DataType string `json:"data_type,omitempty"`
	PKey     bool   `json:"pkey"`
	Hidden   bool   `json:"hidden,omitempty"`
	Role     string `json:"role,omitempty"`
}

// Table is a self-describing grid of cells.
type Table struct {
	Columns []Column `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

// NewTable returns a table with the given columns and no rows.
func NewTable(columns ...Column) Table {
	return Table{Columns: columns, Rows: [][]Cell{}}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...Cell) {
	t.Rows = append(t.Rows, cells)
}

// ColumnIndex returns the position of the column titled title, or -1.
func (t Table) ColumnIndex(title string) int {
	for i, c := range t.Columns {
		if c.Title == title {
			return i
		}
	}
	return -1
}

// ColumnTitles lists column titles in order.
func (t Table) ColumnTitles() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Title
	}
	return out
}

// Validate checks that exactly one column is the primary key, that its values
// are unique and that every row carries one cell per column. Subtables are
// validated recursively.
func (t Table) Validate() error {
	pkeys, key := 0, -1
	for i, c := range t.Columns {
		if c.PKey {
			pkeys++
			key = i
		}
	}
	if pkeys != 1 {
		return fmt.Errorf("%w: %d primary key columns", ErrInvalidTable, pkeys)
	}
	seen := make(map[string]int, len(t.Rows))
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("%w: row %d has %d cells for %d columns", ErrInvalidTable, i, len(row), len(t.Columns))
		}
		k := fmt.Sprint(row[key].Value)
		if first, dup := seen[k]; dup {
			return fmt.Errorf("%w: rows %d and %d share primary key %q", ErrInvalidTable, first, i, k)
		}
		seen[k] = i
		for j, cell := range row {
			if cell.Type != CellSubtable {
				continue
			}
			if cell.Table == nil {
				return fmt.Errorf("%w: row %d column %d: subtable cell without table", ErrInvalidTable, i, j)
			}
			if err := cell.Table.Validate(); err != nil {
				return fmt.Errorf("row %d column %d: %w", i, j, err)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	out := Table{Columns: append([]Column(nil), t.Columns...)}
	if t.Rows != nil {
		out.Rows = make([][]Cell, len(t.Rows))
		for i, row := range t.Rows {
			cells := make([]Cell, len(row))
			for j, c := range row {
				cells[j] = c
				if c.Table != nil {
					sub := c.Table.Clone()
					cells[j].Table = &sub
				}
			}
			out.Rows[i] = cells
		}
	}
	return out
}

// CellType tags the variant held by a Cell.
type CellType string

const (
	CellValue    CellType = "cell"
	CellSubtable CellType = "subtable"
	CellData     CellType = "data"
)

// Cell is a table cell: a scalar value, a nested table, or a raw data payload.
type Cell struct {
	Type    CellType
	Value   any
	Table   *Table
	Tooltip string
}

// ValueCell returns a scalar cell.
func ValueCell(v any) Cell {
	return Cell{Type: CellValue, Value: v}
}

// TooltipCell returns a scalar cell carrying a tooltip.
func TooltipCell(v any, tooltip string) Cell {
	return Cell{Type: CellValue, Value: v, Tooltip: tooltip}
}

// SubtableCell returns a cell holding a nested table.
func SubtableCell(t Table) Cell {
	return Cell{Type: CellSubtable, Table: &t}
}

// DataCell returns a cell holding a raw payload for custom renderers.
func DataCell(v any) Cell {
	return Cell{Type: CellData, Value: v}
}

type cellWire struct {
	Type    CellType        `json:"type"`
	Value   json.RawMessage `json:"value"`
	Tooltip string          `json:"tooltip,omitempty"`
}

// MarshalJSON encodes the cell as {"type", "value", "tooltip"}.
func (c Cell) MarshalJSON() ([]byte, error) {
	var value any = c.Value
	typ := c.Type
	if typ == "" {
		typ = CellValue
	}
	if typ == CellSubtable {
		value = c.Table
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cellWire{Type: typ, Value: raw, Tooltip: c.Tooltip})
}

// UnmarshalJSON decodes the tagged cell encoding.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var w cellWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Cell{Type: w.Type, Tooltip: w.Tooltip}
	switch w.Type {
	case CellSubtable:
		var t Table
		if err := json.Unmarshal(w.Value, &t); err != nil {
			return fmt.Errorf("subtable cell: %w", err)
		}
		c.Table = &t
	case CellValue, CellData, "":
		if c.Type == "" {
			c.Type = CellValue
		}
		if len(w.Value) == 0 {
			return nil
		}
		return json.Unmarshal(w.Value, &c.Value)
	default:
		return fmt.Errorf("unknown cell type %q", w.Type)
	}
	return nil
}

// Render option kinds.
const (
	RenderTable           = "table"
	RenderBar             = "bar"
	RenderMultistack      = "multistack"
	RenderEcocode         = "ecocode"
	RenderEcocodesSamples = "ecocodes-samples"
)

// RenderOption is a declarative view configuration for a content item.
type RenderOption struct {
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Selected bool            `json:"selected"`
	Options  []RenderSetting `json:"options,omitempty"`
}

// Clone returns a deep copy of the option.
func (r RenderOption) Clone() RenderOption {
	out := r
	if r.Options != nil {
		out.Options = make([]RenderSetting, len(r.Options))
		for i, o := range r.Options {
			out.Options[i] = o
			out.Options[i].Choices = append([]RenderChoice(nil), o.Choices...)
		}
	}
	return out
}

// RenderSetting is one user-adjustable axis or sort selector.
type RenderSetting struct {
	Title    string         `json:"title"`
	Type     string         `json:"type"`
	Location string         `json:"location,omitempty"`
	Selected int            `json:"selected"`
	Choices  []RenderChoice `json:"options,omitempty"`
}

// RenderChoice is a selectable value of a RenderSetting; Value is a column index.
type RenderChoice struct {
	Title string `json:"title"`
	Value int    `json:"value"`
}
