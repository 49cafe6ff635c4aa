package datasetapi

import (
	"strconv"

	"sitereport/pkg/domain"
)

// MethodSection finds or creates the section keyed by the method id.
func MethodSection(env *Environment, sections *domain.SectionList, methodID int) *domain.Section {
	s, _ := sections.FindOrCreate(domain.Section{
		Name:              strconv.Itoa(methodID),
		Title:             MethodTitle(env, methodID),
		MethodDescription: MethodDescription(env, methodID),
		Collapsed:         true,
	})
	return s
}

// DatasetContent returns a content item for one dataset with its reference and
// contacts resolved.
func DatasetContent(env *Environment, rec domain.AnalysisRecord, table domain.Table, options ...domain.RenderOption) domain.ContentItem {
	title := rec.DatasetName
	if title == "" {
		title = "Dataset " + strconv.Itoa(rec.DatasetID)
	}
	if options == nil {
		options = []domain.RenderOption{TableOption(true)}
	}
	return domain.ContentItem{
		Name:             strconv.Itoa(rec.DatasetID),
		Title:            title,
		DatasetReference: BiblioHTML(env, rec.BiblioID),
		DatasetContacts:  ContactsHTML(env, rec.ContactIDs),
		Data:             table,
		RenderOptions:    options,
	}
}

// EntityKeyColumn is the hidden primary-key column holding the analysis entity id.
func EntityKeyColumn() domain.Column {
	return domain.Column{Title: "Analysis entity ID", DataType: domain.DataTypeNumber, PKey: true, Hidden: true}
}

// RowKeyColumn is the hidden primary-key column of tables that derive several
// rows from one analysis entity. Its cells come from RowKey.
func RowKeyColumn() domain.Column {
	return domain.Column{Title: "Row ID", DataType: domain.DataTypeString, PKey: true, Hidden: true}
}

// RowKey identifies the index-th row derived from the entity entityID.
func RowKey(entityID, index int) domain.Cell {
	return domain.ValueCell(strconv.Itoa(entityID) + "-" + strconv.Itoa(index))
}

// SampleNameColumn holds the physical sample name.
func SampleNameColumn() domain.Column {
	return domain.Column{Title: "Sample name", DataType: domain.DataTypeString}
}

// TableOption is the spreadsheet view.
func TableOption(selected bool) domain.RenderOption {
	return domain.RenderOption{Name: "Spreadsheet", Type: domain.RenderTable, Selected: selected}
}

// BarOption is a bar chart over the given x and y column indexes.
func BarOption(table domain.Table, x, y int, selected bool) domain.RenderOption {
	return domain.RenderOption{
		Name:     "Bar chart",
		Type:     domain.RenderBar,
		Selected: selected,
		Options: []domain.RenderSetting{
			axisSetting(table, "X axis", x),
			axisSetting(table, "Y axis", y),
		},
	}
}

// MultistackOption is a stacked bar chart: x groups, y stacked values, z series.
func MultistackOption(table domain.Table, x, y, z int, selected bool) domain.RenderOption {
	return domain.RenderOption{
		Name:     "Bar chart",
		Type:     domain.RenderMultistack,
		Selected: selected,
		Options: []domain.RenderSetting{
			axisSetting(table, "X axis", x),
			axisSetting(table, "Y axis", y),
			axisSetting(table, "Sort", z),
		},
	}
}

// EcocodeOption is the site-level ecocode bar chart.
func EcocodeOption(selected bool) domain.RenderOption {
	return domain.RenderOption{Name: "Bar chart", Type: domain.RenderEcocode, Selected: selected}
}

// EcocodesSamplesOption is the per-sample ecocode chart.
func EcocodesSamplesOption(selected bool) domain.RenderOption {
	return domain.RenderOption{Name: "Bar chart", Type: domain.RenderEcocodesSamples, Selected: selected}
}

func axisSetting(table domain.Table, title string, selected int) domain.RenderSetting {
	setting := domain.RenderSetting{Title: title, Type: "select", Location: title, Selected: selected}
	for i, c := range table.Columns {
		if c.Hidden || c.DataType == domain.DataTypeSubtable {
			continue
		}
		setting.Choices = append(setting.Choices, domain.RenderChoice{Title: c.Title, Value: i})
	}
	return setting
}
