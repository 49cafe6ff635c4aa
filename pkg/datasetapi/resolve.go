package datasetapi

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"sitereport/pkg/domain"
)

// MethodTitle returns the display name of a method, falling back to its id.
func MethodTitle(env *Environment, methodID int) string {
	if row, ok := env.Lookup(domain.LookupMethods).Get(methodID); ok {
		if name := row.String("method_name"); name != "" {
			return name
		}
	}
	return "Method " + strconv.Itoa(methodID)
}

// MethodAbbreviation returns the short method name, or the full title.
func MethodAbbreviation(env *Environment, methodID int) string {
	if row, ok := env.Lookup(domain.LookupMethods).Get(methodID); ok {
		if abbrev := row.String("method_abbrev_or_alt_name"); abbrev != "" {
			return abbrev
		}
	}
	return MethodTitle(env, methodID)
}

// MethodDescription returns the method description or the empty string.
func MethodDescription(env *Environment, methodID int) string {
	row, _ := env.Lookup(domain.LookupMethods).Get(methodID)
	return row.String("description")
}

// MethodUnit returns the abbreviation of the method's default unit.
func MethodUnit(env *Environment, methodID int) string {
	row, ok := env.Lookup(domain.LookupMethods).Get(methodID)
	if !ok {
		return ""
	}
	unitID, ok := row.Int("unit_id")
	if !ok {
		return ""
	}
	return UnitAbbreviation(env, unitID)
}

// UnitAbbreviation resolves a unit id to its abbreviation.
func UnitAbbreviation(env *Environment, unitID int) string {
	row, ok := env.Lookup(domain.LookupUnits).Get(unitID)
	if !ok {
		return ""
	}
	if abbrev := row.String("unit_abbrev"); abbrev != "" {
		return abbrev
	}
	return row.String("unit_name")
}

// LabName resolves a dating lab id. The second return value is a tooltip
// naming the lab's country when known.
func LabName(env *Environment, labID *int) (string, string) {
	if labID == nil {
		return NoData, ""
	}
	row, ok := env.Lookup(domain.LookupLabs).Get(*labID)
	if !ok {
		return Unknown, ""
	}
	name := row.String("lab_name")
	if name == "" {
		name = row.String("international_lab_id")
	}
	return OrNoData(name), row.String("country")
}

// UncertaintyName resolves a dating uncertainty id. The tooltip carries the
// uncertainty description.
func UncertaintyName(env *Environment, id *int) (string, string) {
	if id == nil {
		return "", ""
	}
	row, ok := env.Lookup(domain.LookupDatingUncertainty).Get(*id)
	if !ok {
		return Unknown, ""
	}
	return row.String("uncertainty"), row.String("description")
}

// SampleName resolves a physical sample id against the site. The tooltip names
// the sample group.
func SampleName(env *Environment, physicalSampleID int) (string, string) {
	if env != nil {
		if ps, group, ok := env.Site.FindPhysicalSample(physicalSampleID); ok {
			name := ps.Name
			if name == "" {
				name = strconv.Itoa(ps.ID)
			}
			return name, "Sample group: " + group.Name
		}
	}
	return strconv.Itoa(physicalSampleID), ""
}

// SampleCell returns a sample-name cell with its sample group as tooltip.
func SampleCell(env *Environment, physicalSampleID int) domain.Cell {
	name, tip := SampleName(env, physicalSampleID)
	return domain.TooltipCell(name, tip)
}

// LookupName returns the named column of row id in lookup, or Unknown.
func LookupName(table *domain.LookupTable, id int, column string) string {
	if row, ok := table.Get(id); ok {
		if v := row.String(column); v != "" {
			return v
		}
	}
	return Unknown
}

// BiblioHTML formats the dataset reference. The empty string is returned when
// the record has none or it cannot be resolved.
func BiblioHTML(env *Environment, biblioID *int) string {
	if biblioID == nil {
		return ""
	}
	row, ok := env.Lookup(domain.LookupBiblio).Get(*biblioID)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString("<div class='dataset-biblio'>")
	if full := row.String("full_reference"); full != "" {
		b.WriteString(html.EscapeString(full))
	} else {
		authors, year, title := row.String("authors"), row.String("year"), row.String("title")
		if authors != "" {
			b.WriteString(html.EscapeString(authors))
		}
		if year != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(year))
		}
		if title != "" {
			fmt.Fprintf(&b, " <i>%s</i>", html.EscapeString(title))
		}
	}
	if doi := row.String("doi"); doi != "" {
		fmt.Fprintf(&b, " <a href='https://doi.org/%s' target='_blank'>%s</a>", html.EscapeString(doi), html.EscapeString(doi))
	} else if url := row.String("url"); url != "" {
		fmt.Fprintf(&b, " <a href='%s' target='_blank'>%s</a>", html.EscapeString(url), html.EscapeString(url))
	}
	b.WriteString("</div>")
	return b.String()
}

// ContactsHTML formats the dataset contacts, skipping unresolvable ids.
func ContactsHTML(env *Environment, contactIDs []int) string {
	table := env.Lookup(domain.LookupContacts)
	var parts []string
	for _, id := range contactIDs {
		row, ok := table.Get(id)
		if !ok {
			continue
		}
		name := strings.TrimSpace(row.String("first_name") + " " + row.String("last_name"))
		if name == "" {
			continue
		}
		entry := html.EscapeString(name)
		if email := row.String("email"); email != "" {
			entry += "<br/><a href='mailto:" + html.EscapeString(email) + "'>" + html.EscapeString(email) + "</a>"
		}
		if affiliation := row.String("address_1"); affiliation != "" {
			entry += "<br/>" + html.EscapeString(affiliation)
		}
		parts = append(parts, "<div class='dataset-contact'>"+entry+"</div>")
	}
	return strings.Join(parts, "")
}
