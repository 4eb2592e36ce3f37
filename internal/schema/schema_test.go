package schema

import (
	"errors"
	"testing"
)

func citySchema() *Schema {
	return &Schema{Fields: []Field{
		{Name: "city", Type: TypeString, Nullable: true},
		{Name: "country", Type: TypeString, Nullable: true},
		{Name: "latitude", Type: TypeDouble, Nullable: true},
		{Name: "longitude", Type: TypeDouble, Nullable: true},
		{Name: "population", Type: TypeLong, Nullable: true},
	}}
}

func TestValidate_OK(t *testing.T) {
	s := citySchema()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := s.FieldCount(); got != 5 {
		t.Fatalf("FieldCount=%d; want 5", got)
	}
	if got := s.FieldAt(2).Name; got != "latitude" {
		t.Fatalf("FieldAt(2)=%q; want latitude", got)
	}
}

func TestValidate_DuplicateName(t *testing.T) {
	s := &Schema{Fields: []Field{
		{Name: "a", Type: TypeString},
		{Name: "a", Type: TypeLong},
	}}
	err := s.Validate()
	if err == nil {
		t.Fatal("want error for duplicate field name")
	}
	var se *Error
	if !errors.As(err, &se) {
		t.Fatalf("error type %T; want *schema.Error", err)
	}
	if se.Field != "a" {
		t.Fatalf("Field=%q; want a", se.Field)
	}
}

func TestValidate_UnknownType(t *testing.T) {
	s := &Schema{Fields: []Field{{Name: "x", Type: FieldType("decimal")}}}
	if err := s.Validate(); err == nil {
		t.Fatal("want error for unknown type")
	}
}

func TestValidate_EmptyAndReserved(t *testing.T) {
	if err := (&Schema{}).Validate(); err == nil {
		t.Fatal("want error for empty schema")
	}
	s := &Schema{Fields: []Field{{Name: CorruptRecordColumn, Type: TypeString}}}
	if err := s.Validate(); err == nil {
		t.Fatal("want error for reserved column name")
	}
}

/*
TestColumns verifies that the storage column list follows declaration order
and that corrupt-record capture appends exactly one trailing column without
affecting FieldCount.
*/
func TestColumns(t *testing.T) {
	s := citySchema()
	cols := s.Columns()
	if len(cols) != 5 || cols[0] != "city" || cols[4] != "population" {
		t.Fatalf("Columns=%v", cols)
	}

	s.CaptureCorruptRecord = true
	cols = s.Columns()
	if len(cols) != 6 || cols[5] != CorruptRecordColumn {
		t.Fatalf("Columns with capture=%v", cols)
	}
	if s.FieldCount() != 5 {
		t.Fatalf("FieldCount=%d; capture must not change it", s.FieldCount())
	}
}
