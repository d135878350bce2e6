package basic

import (
	"strings"
	"testing"
)

// TestVariableTypes tests suffix typing of scalar variables
func TestVariableTypes(t *testing.T) {
	tests := []struct {
		name     string
		variable string
		value    Value
		expected Value
		kind     ErrorKind
	}{
		{name: "float", variable: "A", value: FloatValue(2.5), expected: FloatValue(2.5)},
		{name: "integer truncates", variable: "N%", value: FloatValue(7.9), expected: IntegerValue(7)},
		{name: "negative integer truncates toward zero", variable: "N%", value: FloatValue(-7.9), expected: IntegerValue(-7)},
		{name: "string", variable: "S$", value: StringValue("HI"), expected: StringValue("HI")},
		{name: "string into number", variable: "A", value: StringValue("HI"), kind: TypeMismatch},
		{name: "number into string", variable: "S$", value: FloatValue(1), kind: TypeMismatch},
		{name: "integer overflow", variable: "N%", value: FloatValue(40000), kind: Overflow},
		{name: "string too long", variable: "S$", value: StringValue(strings.Repeat("X", MaxStringLength+1)), kind: StringTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := NewMemory()
			err := mem.Set(tt.variable, tt.value)
			if tt.kind != 0 {
				if !IsKind(err, tt.kind) {
					t.Fatalf("Expected %v, got %v", tt.kind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Set failed: %v", err)
			}
			got := mem.Get(tt.variable)
			if got != tt.expected {
				t.Errorf("Expected %#v, got %#v", tt.expected, got)
			}
		})
	}
}

// TestDefaultValues tests that unassigned names read as their zero value
func TestDefaultValues(t *testing.T) {
	mem := NewMemory()
	if v := mem.Get("X"); v != FloatValue(0) {
		t.Errorf("Expected 0, got %v", v)
	}
	if v := mem.Get("X$"); v != StringValue("") {
		t.Errorf("Expected empty string, got %v", v)
	}
	if v := mem.Get("X%"); v != IntegerValue(0) {
		t.Errorf("Expected integer 0, got %v", v)
	}
}

// TestArrays tests DIM and element access
func TestArrays(t *testing.T) {
	mem := NewMemory()
	if err := mem.Dim("A", []int{3, 4}); err != nil {
		t.Fatalf("Dim failed: %v", err)
	}
	arr, ok := mem.Array("A")
	if !ok {
		t.Fatal("Array A should exist")
	}
	if dims := arr.Dims(); len(dims) != 2 || dims[0] != 3 || dims[1] != 4 {
		t.Errorf("Expected dims [3 4], got %v", dims)
	}
	if arr.Len() != 12 {
		t.Errorf("Expected 12 cells, got %d", arr.Len())
	}

	if err := mem.SetElement("A", []int{2, 3}, FloatValue(5)); err != nil {
		t.Fatalf("SetElement failed: %v", err)
	}
	v, err := mem.GetElement("A", []int{2, 3})
	if err != nil || v.Number() != 5 {
		t.Errorf("Expected 5, got %v (%v)", v, err)
	}

	errorCases := []struct {
		name    string
		indices []int
	}{
		{"row out of range", []int{3, 0}},
		{"column out of range", []int{0, 4}},
		{"negative", []int{-1, 0}},
		{"wrong arity", []int{1}},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mem.GetElement("A", tt.indices); !IsKind(err, BadSubscript) {
				t.Errorf("GetElement: expected bad subscript, got %v", err)
			}
			if err := mem.SetElement("A", tt.indices, FloatValue(1)); !IsKind(err, BadSubscript) {
				t.Errorf("SetElement: expected bad subscript, got %v", err)
			}
		})
	}

	if err := mem.Dim("A", []int{2}); !IsKind(err, RedimensionedArray) {
		t.Errorf("Expected redimensioned array, got %v", err)
	}
	if err := mem.Dim("Z", []int{0}); !IsKind(err, IllegalQuantity) {
		t.Errorf("Expected illegal quantity for size 0, got %v", err)
	}
	if err := mem.Dim("BIG", []int{MaxArrayCells, 2}); !IsKind(err, OutOfMemory) {
		t.Errorf("Expected out of memory, got %v", err)
	}
}

// TestImplicitArray tests arrays created on first use
func TestImplicitArray(t *testing.T) {
	mem := NewMemory()
	if err := mem.SetElement("B$", []int{10}, StringValue("END")); err != nil {
		t.Fatalf("SetElement failed: %v", err)
	}
	arr, _ := mem.Array("B$")
	if dims := arr.Dims(); len(dims) != 1 || dims[0] != DefaultDimension {
		t.Errorf("Expected default dimension, got %v", dims)
	}
	v, _ := mem.GetElement("B$", []int{0})
	if v != StringValue("") {
		t.Errorf("String array cells should start empty, got %v", v)
	}
	if _, err := mem.GetElement("B$", []int{DefaultDimension}); !IsKind(err, BadSubscript) {
		t.Errorf("Expected bad subscript, got %v", err)
	}
	if err := mem.Dim("B$", []int{20}); !IsKind(err, RedimensionedArray) {
		t.Errorf("DIM after implicit creation should fail, got %v", err)
	}
}

// TestForStack tests FOR frame handling
func TestForStack(t *testing.T) {
	mem := NewMemory()
	mem.PushFor(ForFrame{Var: "I", End: 10, Step: 1})
	mem.PushFor(ForFrame{Var: "J", End: 10, Step: 1})
	mem.PushFor(ForFrame{Var: "K", End: 10, Step: 1})

	// Restarting J drops J and K.
	if err := mem.PushFor(ForFrame{Var: "J", End: 3, Step: 1}); err != nil {
		t.Fatalf("PushFor failed: %v", err)
	}
	if mem.ForDepth() != 2 {
		t.Fatalf("Expected depth 2, got %d", mem.ForDepth())
	}
	top, _ := mem.TopFor()
	if top.Var != "J" || top.End != 3 {
		t.Errorf("Unexpected top frame %+v", top)
	}

	mem.SetLimits(2, 0)
	if err := mem.PushFor(ForFrame{Var: "X", Step: 1}); !IsKind(err, OutOfMemory) {
		t.Errorf("Expected out of memory, got %v", err)
	}
}

// TestForFrameContinues tests the loop termination rule
func TestForFrameContinues(t *testing.T) {
	tests := []struct {
		name     string
		frame    ForFrame
		value    float64
		expected bool
	}{
		{"ascending inside", ForFrame{End: 5, Step: 1}, 5, true},
		{"ascending past", ForFrame{End: 5, Step: 1}, 6, false},
		{"descending inside", ForFrame{End: 1, Step: -2}, 2, true},
		{"descending past", ForFrame{End: 1, Step: -2}, 0, false},
		{"zero step", ForFrame{End: 5, Step: 0}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.Continues(tt.value); got != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

// TestGosubStack tests LIFO order and limits
func TestGosubStack(t *testing.T) {
	mem := NewMemory()
	mem.SetLimits(0, 2)
	mem.PushGosub(GosubFrame{Line: 10})
	mem.PushGosub(GosubFrame{Line: 20, Stmt: 1})
	if err := mem.PushGosub(GosubFrame{Line: 30}); !IsKind(err, OutOfMemory) {
		t.Errorf("Expected out of memory, got %v", err)
	}

	f, err := mem.PopGosub()
	if err != nil || f.Line != 20 || f.Stmt != 1 {
		t.Errorf("Expected frame 20:1, got %+v (%v)", f, err)
	}
	f, _ = mem.PopGosub()
	if f.Line != 10 {
		t.Errorf("Expected frame 10, got %+v", f)
	}
	if _, err := mem.PopGosub(); !IsKind(err, ReturnWithoutGosub) {
		t.Errorf("Expected return without gosub, got %v", err)
	}
}

// TestDataPool tests READ order, RESTORE and OUT OF DATA
func TestDataPool(t *testing.T) {
	var pool DataPool
	pool.Append(10, []Value{FloatValue(1), FloatValue(2)})
	pool.Append(30, []Value{StringValue("X")})

	for _, want := range []Value{FloatValue(1), FloatValue(2), StringValue("X")} {
		got, err := pool.Next()
		if err != nil || got != want {
			t.Fatalf("Expected %v, got %v (%v)", want, got, err)
		}
	}
	if _, err := pool.Next(); !IsKind(err, OutOfData) {
		t.Errorf("Expected out of data, got %v", err)
	}

	pool.Restore(20)
	if got, _ := pool.Next(); got != StringValue("X") {
		t.Errorf("RESTORE 20 should continue at line 30, got %v", got)
	}
	pool.Restore(0)
	if pool.Remaining() != 3 {
		t.Errorf("Expected 3 remaining, got %d", pool.Remaining())
	}
}

// TestMemoryClear tests that CLEAR keeps DATA but drops everything else
func TestMemoryClear(t *testing.T) {
	mem := NewMemory()
	mem.Set("A", FloatValue(1))
	mem.Dim("B", []int{2})
	mem.PushGosub(GosubFrame{Line: 10})
	mem.Data.Append(10, []Value{FloatValue(1)})
	mem.Data.Next()

	mem.Clear()
	if mem.Get("A") != FloatValue(0) {
		t.Error("Variables should be cleared")
	}
	if _, ok := mem.Array("B"); ok {
		t.Error("Arrays should be cleared")
	}
	if mem.GosubDepth() != 0 {
		t.Error("GOSUB stack should be empty")
	}
	if mem.Data.Len() != 1 || mem.Data.Remaining() != 1 {
		t.Errorf("DATA should be kept and rewound, got len=%d remaining=%d", mem.Data.Len(), mem.Data.Remaining())
	}
}
