package proc

// Arity describes how many values a slot may carry per event.
type Arity uint8

const (
	// ArityNone marks a slot that carries no values.
	ArityNone Arity = iota
	// ArityOne marks a slot that carries exactly one value.
	ArityOne
	// ArityAny marks a slot that carries zero or more values.
	ArityAny
)

// OutputDecl is one declared output slot. Optional outputs may legitimately
// carry no value for a given event (abstention).
type OutputDecl struct {
	Arity    Arity
	Optional bool
}

// ConfCursor collects a processor's one-time slot declarations: the accepted
// arity of each input slot in order, and the produced output slots. A
// processor signals a configuration-shape mismatch by returning without
// declaring any outputs.
type ConfCursor struct {
	n   int
	in  []Arity
	out []OutputDecl
}

// NewConfCursor returns a ConfCursor over n input slots.
func NewConfCursor(n int) *ConfCursor {
	return &ConfCursor{n: n}
}

// Slots returns the total number of input slots.
func (c *ConfCursor) Slots() int { return c.n }

// Accept declares the accepted arity of the next undeclared input slot.
func (c *ConfCursor) Accept(a Arity) {
	c.in = append(c.in, a)
}

// Produce declares one output slot.
func (c *ConfCursor) Produce(a Arity) {
	c.out = append(c.out, OutputDecl{Arity: a})
}

// ProduceOptional declares one output slot that may carry no value per event.
func (c *ConfCursor) ProduceOptional(a Arity) {
	c.out = append(c.out, OutputDecl{Arity: a, Optional: true})
}

// Inputs returns the declared input arities, in slot order.
func (c *ConfCursor) Inputs() []Arity { return c.in }

// Outputs returns the declared output slots, in order.
func (c *ConfCursor) Outputs() []OutputDecl { return c.out }

// ValueCursor presents one event's input slots to a processor and collects
// its output slots. Input slots are visited in order with Values/Advance;
// the category selector may additionally be read out of order with At.
// Output values accumulate with Emit and are sealed per slot with EndSlot —
// sealing a slot with nothing emitted records an empty (abstained) output.
type ValueCursor struct {
	in  [][]float64
	pos int

	cur []float64
	out [][]float64
}

// NewValueCursor returns a ValueCursor over the event's per-slot values.
func NewValueCursor(in [][]float64) *ValueCursor {
	return &ValueCursor{in: in}
}

// Slots returns the number of input slots.
func (c *ValueCursor) Slots() int { return len(c.in) }

// Values returns the current input slot's values.
func (c *ValueCursor) Values() []float64 { return c.in[c.pos] }

// At returns the values of input slot i without moving the cursor.
func (c *ValueCursor) At(i int) []float64 { return c.in[i] }

// Advance moves the cursor to the next input slot.
func (c *ValueCursor) Advance() { c.pos++ }

// Emit appends one value to the pending output slot.
func (c *ValueCursor) Emit(v float64) {
	c.cur = append(c.cur, v)
}

// EndSlot seals the pending output slot. An empty pending slot is sealed as
// an abstention for that output.
func (c *ValueCursor) EndSlot() {
	c.out = append(c.out, c.cur)
	c.cur = nil
}

// Outputs returns the sealed output slots in declaration order. A nil or
// empty entry means the processor emitted no value for that slot.
func (c *ValueCursor) Outputs() [][]float64 { return c.out }
