package planner

import "github.com/mfenderov/outliner/pkg/models"

// StepKind tells the engine how to handle a step.
type StepKind int

const (
	// Passthrough blocks are copied to the output unchanged.
	Passthrough StepKind = iota
	// Section steps are list items resolved through the memo cache or the generator.
	Section
)

func (k StepKind) String() string {
	switch k {
	case Passthrough:
		return "passthrough"
	case Section:
		return "section"
	default:
		return "unknown"
	}
}

// Step is one unit of work in document order.
type Step struct {
	Kind  StepKind
	Block models.Block
	// Position is the index of the top-level block the step came from.
	Position int
	// Section is the zero-based ordinal among all section steps; -1 for passthrough.
	Section int
}

// Plan classifies top-level blocks. Every list contributes one section per
// item, in item order; everything else passes through.
func Plan(blocks []models.Block) []Step {
	steps := make([]Step, 0, len(blocks))
	section := 0
	for pos, b := range blocks {
		if !b.IsList() {
			steps = append(steps, Step{Kind: Passthrough, Block: b, Position: pos, Section: -1})
			continue
		}
		for _, it := range b.Items {
			steps = append(steps, Step{Kind: Section, Block: it, Position: pos, Section: section})
			section++
		}
	}
	return steps
}

// Count returns the number of passthrough and section steps.
func Count(steps []Step) (passthrough, sections int) {
	for _, s := range steps {
		if s.Kind == Section {
			sections++
		} else {
			passthrough++
		}
	}
	return passthrough, sections
}
