package proc

// blocks addresses a flat, category-partitioned calibration table. With no
// categorization (categoryIdx < 0) the whole table is the single block;
// otherwise the table splits into nCategories contiguous blocks of size n-1,
// selected per event by the integer value of the slot at categoryIdx.
type blocks struct {
	categoryIdx int
	nCategories int
	size        int // block size, derived at configuration time
}

// configure validates the slot count against the table size and derives the
// block partitioning. It reports false on a shape mismatch.
func (b *blocks) configure(n, table int) bool {
	if b.categoryIdx >= 0 {
		// A categorized table needs the selector slot plus at least one
		// value slot.
		if n < 2 || n < b.categoryIdx+1 {
			return false
		}
		b.nCategories = table / (n - 1)
		if b.nCategories*(n-1) != table {
			return false
		}
		b.size = n - 1
		return true
	}
	if n != table {
		return false
	}
	b.nCategories = 1
	b.size = table
	return true
}

// resolve returns the start offset of the block selected by the event at the
// cursor. ok is false when the category selector is absent or outside
// [0, nCategories) — a per-event abstention, not an error.
func (b *blocks) resolve(c *ValueCursor) (start int, ok bool) {
	if b.categoryIdx < 0 {
		return 0, true
	}
	vals := c.At(b.categoryIdx)
	if len(vals) == 0 {
		return 0, false
	}
	cat := int(vals[0])
	if cat < 0 || cat >= b.nCategories {
		return 0, false
	}
	return cat * b.size, true
}
