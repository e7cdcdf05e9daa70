package pipeline

import (
	"fmt"
	"time"

	"github.com/mvakit/mvakit/internal/calib"
	"github.com/mvakit/mvakit/internal/proc"
)

// Event is one record of named variable slots, each holding zero or more
// scalar values. Events are processed independently.
type Event struct {
	ID        string               `json:"id"`
	Variables map[string][]float64 `json:"variables"`
}

// Result is the outcome of evaluating one event: the values produced per
// output slot, and the names of stages that abstained.
type Result struct {
	EventID     string               `json:"event_id"`
	Outputs     map[string][]float64 `json:"outputs"`
	Abstained   []string             `json:"abstained,omitempty"`
	EvaluatedAt time.Time            `json:"evaluated_at"`
}

// StageSpec describes one stage to build: its instance name, processor kind
// and calibration record.
type StageSpec struct {
	Name   string
	Kind   string
	Record calib.Record
}

// StageInfo is the introspectable description of one configured stage.
type StageInfo struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// stage is one configured processor bound to its slot names.
type stage struct {
	name     string
	kind     string
	proc     proc.Processor
	inputs   []string
	arities  []proc.Arity
	outputs  []string // derived output slot names, parallel to declarations
	optional []bool
}

// Computer drives a fixed chain of configured stages over events. All state
// is immutable after New, so Evaluate is safe for concurrent events.
type Computer struct {
	stages []*stage
}

// New builds and configures every stage. It fails on unknown kinds, on
// processor construction errors, and on calibration shapes that do not
// match the stage's input slot count.
func New(specs []StageSpec) (*Computer, error) {
	c := &Computer{}
	seen := map[string]bool{}

	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("pipeline: stage with empty name")
		}
		if seen[spec.Name] {
			return nil, fmt.Errorf("pipeline: duplicate stage name %q", spec.Name)
		}
		seen[spec.Name] = true

		p, err := proc.New(spec.Kind, spec.Name, spec.Record)
		if err != nil {
			return nil, fmt.Errorf("pipeline: stage %q: %w", spec.Name, err)
		}

		inputs := spec.Record.Inputs()
		cc := proc.NewConfCursor(len(inputs))
		p.Configure(cc)
		decls := cc.Outputs()
		if len(decls) == 0 {
			return nil, fmt.Errorf("pipeline: stage %q: calibration shape does not match %d input slots", spec.Name, len(inputs))
		}

		st := &stage{
			name:    spec.Name,
			kind:    spec.Kind,
			proc:    p,
			inputs:  inputs,
			arities: cc.Inputs(),
		}
		st.outputs = outputNames(spec.Name, inputs, cc.Inputs(), decls)
		for _, d := range decls {
			st.optional = append(st.optional, d.Optional)
		}
		c.stages = append(c.stages, st)
	}
	return c, nil
}

// outputNames derives slot names for a stage's declared outputs: a single
// optional estimate takes the stage name; per-variable outputs take
// stage_variable for each variable-arity input slot.
func outputNames(name string, inputs []string, arities []proc.Arity, decls []proc.OutputDecl) []string {
	if len(decls) == 1 && decls[0].Optional {
		return []string{name}
	}

	var multi []string
	for i, a := range arities {
		if a == proc.ArityAny {
			multi = append(multi, name+"_"+inputs[i])
		}
	}
	if len(multi) == len(decls) {
		return multi
	}

	out := make([]string, len(decls))
	for i := range decls {
		out[i] = fmt.Sprintf("%s_%d", name, i)
	}
	return out
}

// Stages returns the configured stages in evaluation order.
func (c *Computer) Stages() []StageInfo {
	out := make([]StageInfo, 0, len(c.stages))
	for _, st := range c.stages {
		out = append(out, StageInfo{
			Name:    st.name,
			Kind:    st.kind,
			Inputs:  append([]string(nil), st.inputs...),
			Outputs: append([]string(nil), st.outputs...),
		})
	}
	return out
}

// Evaluate runs every stage over the event in order and collects the
// produced output slots. Abstentions are per-event outcomes, never errors:
// an abstaining stage contributes empty output slots and its name in
// Result.Abstained.
func (c *Computer) Evaluate(ev *Event, now time.Time) *Result {
	// Working copy of the visible slots; stage outputs are appended so
	// later stages can read them.
	vars := make(map[string][]float64, len(ev.Variables)+len(c.stages))
	for k, v := range ev.Variables {
		vars[k] = v
	}

	res := &Result{
		EventID:     ev.ID,
		Outputs:     make(map[string][]float64),
		EvaluatedAt: now,
	}

	for _, st := range c.stages {
		in := make([][]float64, len(st.inputs))
		var fed int
		for i, name := range st.inputs {
			in[i] = vars[name] // missing variable = empty slot
			if st.arities[i] == proc.ArityAny {
				fed += len(in[i])
			}
		}

		vc := proc.NewValueCursor(in)
		st.proc.Eval(vc)
		outs := vc.Outputs()

		var produced int
		for i, name := range st.outputs {
			var vals []float64
			if i < len(outs) {
				vals = outs[i]
			}
			produced += len(vals)
			vars[name] = vals
			if vals == nil {
				vals = []float64{} // keep JSON output as [] rather than null
			}
			res.Outputs[name] = vals
		}

		// A stage abstained when it produced nothing despite having
		// something to say: values were fed in, or its output is the
		// optional single estimate.
		if produced == 0 && (fed > 0 || st.optional[0]) {
			res.Abstained = append(res.Abstained, st.name)
		}
	}
	return res
}
