package proc

import (
	"fmt"
	"sort"

	"github.com/mvakit/mvakit/internal/calib"
)

// Processor is one stage of the variable pipeline. Configure runs exactly
// once before any Eval; Eval is read-only and safe for concurrent events.
type Processor interface {
	Name() string
	Configure(c *ConfCursor)
	Eval(c *ValueCursor)
}

// Factory constructs a named processor instance from its calibration record.
type Factory func(name string, rec calib.Record) (Processor, error)

var registry = map[string]Factory{}

// Register adds a processor factory under the given kind name. It panics on
// duplicate registration, which indicates a programming error at startup.
func Register(kind string, f Factory) {
	if _, dup := registry[kind]; dup {
		panic(fmt.Sprintf("proc: duplicate registration of kind %q", kind))
	}
	registry[kind] = f
}

// New constructs a processor of the given kind from a calibration record.
func New(kind, name string, rec calib.Record) (Processor, error) {
	f, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("proc: unknown processor kind %q (registered: %v)", kind, Kinds())
	}
	return f(name, rec)
}

// Kinds returns the registered processor kind names, sorted.
func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
