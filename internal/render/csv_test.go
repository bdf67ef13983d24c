package render

import (
	"reflect"
	"testing"
)

func TestParseCSVLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted comma", `a,"b,c",d`, []string{"a", "b,c", "d"}},
		{"escaped quote", `"a""b",c`, []string{`a"b`, "c"}},
		{"whitespace trimmed", "  a , b ,c  ", []string{"a", "b", "c"}},
		{"empty fields", "a,,c", []string{"a", "", "c"}},
		{"trailing comma", "a,b,", []string{"a", "b", ""}},
		{"single field", "only", []string{"only"}},
		{"quoted empty", `"",b`, []string{"", "b"}},
		{"escaped quotes mid-field", `"he said ""hi""",x`, []string{`he said "hi"`, "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCSVLine(tt.line); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCSVLine(%q) = %#v, want %#v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseCSV(t *testing.T) {
	data := "name,region,count\nalpha,north,10\nbeta,south,20\ngamma,east,30\n"

	table, ok := ParseCSV(data, 2)
	if !ok {
		t.Fatal("ParseCSV returned not ok")
	}
	if !reflect.DeepEqual(table.Fields, []string{"name", "region", "count"}) {
		t.Errorf("Fields = %v", table.Fields)
	}
	if len(table.Records) != 2 {
		t.Fatalf("Records = %d, want limit 2", len(table.Records))
	}
	if table.Records[1]["name"] != "beta" {
		t.Errorf("Records[1] = %v", table.Records[1])
	}
}

func TestParseCSVShortAndLongRows(t *testing.T) {
	data := "a,b,c\n1,2\n1,2,3,4\n"
	table, ok := ParseCSV(data, 10)
	if !ok {
		t.Fatal("not ok")
	}
	if table.Records[0]["c"] != "" {
		t.Errorf("short row cell = %v, want empty", table.Records[0]["c"])
	}
	if len(table.Records[1]) != 3 {
		t.Errorf("long row kept %d cells, want 3", len(table.Records[1]))
	}
}

func TestParseCSVSkipsBlankLines(t *testing.T) {
	data := "a,b\r\n\r\n1,2\n\n3,4\n"
	table, ok := ParseCSV(data, 10)
	if !ok {
		t.Fatal("not ok")
	}
	if len(table.Records) != 2 {
		t.Errorf("Records = %d, want 2", len(table.Records))
	}
}

func TestParseCSVEmpty(t *testing.T) {
	if _, ok := ParseCSV("", 10); ok {
		t.Error("empty input should not parse")
	}
	if _, ok := ParseCSV("\n\n", 10); ok {
		t.Error("blank-only input should not parse")
	}
}

func TestParseCSVHeaderOnly(t *testing.T) {
	table, ok := ParseCSV("a,b,c\n", 10)
	if !ok {
		t.Fatal("header-only input should still parse")
	}
	if len(table.Records) != 0 {
		t.Errorf("Records = %d, want 0", len(table.Records))
	}
}
