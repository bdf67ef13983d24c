package render

import "strings"

// ParseCSV splits CSV text into a header field list plus up to limit records.
// Blank lines are skipped; rows shorter than the header leave the missing
// cells empty, longer rows drop the excess.
func ParseCSV(data string, limit int) (Table, bool) {
	lines := splitLines(data)
	if len(lines) == 0 {
		return Table{}, false
	}

	fields := ParseCSVLine(lines[0])
	if len(fields) == 0 {
		return Table{}, false
	}

	records := make([]map[string]any, 0, limit)
	for _, line := range lines[1:] {
		if len(records) >= limit {
			break
		}
		values := ParseCSVLine(line)
		rec := make(map[string]any, len(fields))
		for i, f := range fields {
			if i < len(values) {
				rec[f] = values[i]
			} else {
				rec[f] = ""
			}
		}
		records = append(records, rec)
	}
	return Table{Fields: fields, Records: records}, true
}

// ParseCSVLine splits one line on commas outside double quotes. A doubled
// quote inside a quoted field is an escaped literal quote. Each field is
// trimmed of surrounding whitespace.
func ParseCSVLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))
	return fields
}

func splitLines(data string) []string {
	raw := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
