package basic

import "sort"

// Default stack limits; exceeding them raises OUT OF MEMORY.
const (
	DefaultMaxForDepth   = 64
	DefaultMaxGosubDepth = 256
)

// ForFrame is the state of one active FOR loop.
type ForFrame struct {
	Var    string
	End    float64
	Step   float64
	Resume Position // where NEXT continues when the loop goes on
}

// Continues reports whether a loop whose variable now holds v runs again.
// A zero step never continues.
func (f ForFrame) Continues(v float64) bool {
	switch {
	case f.Step > 0:
		return v <= f.End
	case f.Step < 0:
		return v >= f.End
	}
	return false
}

// GosubFrame records the statement that issued a GOSUB.
type GosubFrame struct {
	Line int
	Stmt int
}

type dataMark struct {
	line  int
	index int
}

// DataPool is the flattened sequence of all DATA literals in program order
// plus the read cursor.
type DataPool struct {
	items []Value
	marks []dataMark
	ptr   int
}

// Reset drops all items and rewinds the cursor.
func (d *DataPool) Reset() {
	d.items = d.items[:0]
	d.marks = d.marks[:0]
	d.ptr = 0
}

// Append adds the literals of one DATA statement found on line.
func (d *DataPool) Append(line int, values []Value) {
	d.marks = append(d.marks, dataMark{line: line, index: len(d.items)})
	d.items = append(d.items, values...)
}

// Next returns the next literal or OUT OF DATA.
func (d *DataPool) Next() (Value, error) {
	if d.ptr >= len(d.items) {
		return Value{}, newError(OutOfData)
	}
	v := d.items[d.ptr]
	d.ptr++
	return v, nil
}

// Restore rewinds the cursor to the first item, or to the first item on or
// after line when line > 0.
func (d *DataPool) Restore(line int) {
	if line <= 0 {
		d.ptr = 0
		return
	}
	i := sort.Search(len(d.marks), func(i int) bool { return d.marks[i].line >= line })
	if i == len(d.marks) {
		d.ptr = len(d.items)
		return
	}
	d.ptr = d.marks[i].index
}

// Len returns the number of items in the pool.
func (d *DataPool) Len() int { return len(d.items) }

// Remaining returns how many items READ can still consume.
func (d *DataPool) Remaining() int { return len(d.items) - d.ptr }

// Memory owns every piece of mutable interpreter state except the program
// text: variables, arrays, the DATA pool and the FOR/GOSUB stacks.
type Memory struct {
	vars   map[string]Value
	arrays map[string]*Array
	Data   DataPool

	forStack   []ForFrame
	gosubStack []GosubFrame
	maxFor     int
	maxGosub   int
}

// NewMemory creates an empty memory with the default stack limits.
func NewMemory() *Memory {
	return &Memory{
		vars:     make(map[string]Value),
		arrays:   make(map[string]*Array),
		maxFor:   DefaultMaxForDepth,
		maxGosub: DefaultMaxGosubDepth,
	}
}

// SetLimits overrides the stack depth limits. Non-positive values keep the current limit.
func (m *Memory) SetLimits(maxFor, maxGosub int) {
	if maxFor > 0 {
		m.maxFor = maxFor
	}
	if maxGosub > 0 {
		m.maxGosub = maxGosub
	}
}

// Get returns a scalar variable, or its zero value if it was never assigned.
func (m *Memory) Get(name string) Value {
	if v, ok := m.vars[name]; ok {
		return v
	}
	return zeroFor(name)
}

// Set assigns a scalar variable, enforcing the suffix type.
func (m *Memory) Set(name string, v Value) error {
	cv, err := coerce(name, v)
	if err != nil {
		return err
	}
	m.vars[name] = cv
	return nil
}

// Variables returns the assigned scalar variable names in sorted order.
func (m *Memory) Variables() []string {
	names := make([]string, 0, len(m.vars))
	for name := range m.vars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dim creates an array. A second DIM of the same name is REDIMENSIONED ARRAY.
func (m *Memory) Dim(name string, dims []int) error {
	if _, exists := m.arrays[name]; exists {
		return newErrorf(RedimensionedArray, "%s", name)
	}
	arr, err := newArray(name, dims)
	if err != nil {
		return err
	}
	m.arrays[name] = arr
	return nil
}

// Array returns the named array if it exists.
func (m *Memory) Array(name string) (*Array, bool) {
	arr, ok := m.arrays[name]
	return arr, ok
}

// array returns the named array, creating it with default bounds on first use.
func (m *Memory) array(name string, arity int) (*Array, error) {
	if arr, ok := m.arrays[name]; ok {
		return arr, nil
	}
	dims := make([]int, arity)
	for i := range dims {
		dims[i] = DefaultDimension
	}
	if err := m.Dim(name, dims); err != nil {
		return nil, err
	}
	return m.arrays[name], nil
}

// GetElement reads one array cell.
func (m *Memory) GetElement(name string, indices []int) (Value, error) {
	arr, err := m.array(name, len(indices))
	if err != nil {
		return Value{}, err
	}
	return arr.Get(indices)
}

// SetElement writes one array cell, enforcing the suffix type.
func (m *Memory) SetElement(name string, indices []int, v Value) error {
	cv, err := coerce(name, v)
	if err != nil {
		return err
	}
	arr, err := m.array(name, len(indices))
	if err != nil {
		return err
	}
	return arr.Set(indices, cv)
}

// PushFor starts a loop. An active loop on the same variable is discarded
// together with every loop nested inside it.
func (m *Memory) PushFor(f ForFrame) error {
	for i := len(m.forStack) - 1; i >= 0; i-- {
		if m.forStack[i].Var == f.Var {
			m.forStack = m.forStack[:i]
			break
		}
	}
	if len(m.forStack) >= m.maxFor {
		return newErrorf(OutOfMemory, "FOR nesting exceeds %d", m.maxFor)
	}
	m.forStack = append(m.forStack, f)
	return nil
}

// TopFor returns the innermost active loop.
func (m *Memory) TopFor() (ForFrame, bool) {
	if len(m.forStack) == 0 {
		return ForFrame{}, false
	}
	return m.forStack[len(m.forStack)-1], true
}

// PopFor removes the innermost loop.
func (m *Memory) PopFor() {
	if len(m.forStack) > 0 {
		m.forStack = m.forStack[:len(m.forStack)-1]
	}
}

// ForDepth returns the number of active loops.
func (m *Memory) ForDepth() int { return len(m.forStack) }

// PushGosub records a GOSUB call site.
func (m *Memory) PushGosub(f GosubFrame) error {
	if len(m.gosubStack) >= m.maxGosub {
		return newErrorf(OutOfMemory, "GOSUB nesting exceeds %d", m.maxGosub)
	}
	m.gosubStack = append(m.gosubStack, f)
	return nil
}

// PopGosub removes and returns the most recent call site.
func (m *Memory) PopGosub() (GosubFrame, error) {
	if len(m.gosubStack) == 0 {
		return GosubFrame{}, newError(ReturnWithoutGosub)
	}
	f := m.gosubStack[len(m.gosubStack)-1]
	m.gosubStack = m.gosubStack[:len(m.gosubStack)-1]
	return f, nil
}

// GosubDepth returns the number of pending RETURNs.
func (m *Memory) GosubDepth() int { return len(m.gosubStack) }

// ResetStacks clears both control stacks.
func (m *Memory) ResetStacks() {
	m.forStack = m.forStack[:0]
	m.gosubStack = m.gosubStack[:0]
}

// Clear drops variables, arrays and stacks and rewinds the DATA cursor.
// The DATA items themselves belong to the program and are kept.
func (m *Memory) Clear() {
	m.vars = make(map[string]Value)
	m.arrays = make(map[string]*Array)
	m.ResetStacks()
	m.Data.Restore(0)
}
