package dataset

import (
	"strings"
	"testing"
)

func TestReadCSV(t *testing.T) {
	src := "y,x1\n1.5,2\n2.5,3\n3.5,4\n"
	table, err := ReadCSV(strings.NewReader(src))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if table.Rows() != 3 {
		t.Fatalf("rows: got %d want 3", table.Rows())
	}
	if got := table.Names(); got[0] != "y" || got[1] != "x1" {
		t.Fatalf("names: %v", got)
	}
	col, ok := table.Column("x1")
	if !ok || col[2] != 4 {
		t.Fatalf("column x1: %v %v", col, ok)
	}
}

func TestReadCSV_NonNumericCell(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("y\noops\n")); err == nil {
		t.Fatal("non-numeric cell should fail")
	}
}

func TestFromColumns_LengthMismatch(t *testing.T) {
	_, err := FromColumns([]string{"a", "b"}, []float64{1, 2}, []float64{1})
	if err == nil {
		t.Fatal("ragged columns should fail")
	}
}

func TestFromColumns_PreservesOrder(t *testing.T) {
	table, err := FromColumns([]string{"b", "a"}, []float64{1}, []float64{2})
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	if names := table.Names(); names[0] != "b" || names[1] != "a" {
		t.Fatalf("column order not preserved: %v", names)
	}
}
