package usecase

import (
	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/stage"
)

// Step is one planned stage; a failed required step fails the whole run.
type Step struct {
	Stage    stage.Name
	Required bool
}

// Phase groups steps without data dependencies on each other; they run concurrently.
type Phase []Step

// Plan is an ordered list of phases. Each phase starts after the previous one finished.
type Plan struct {
	Phases []Phase
}

// PlanFor maps an item's shape to its stage plan. It is a pure function.
func PlanFor(item domain.ContentItem) Plan {
	switch item.Type {
	case domain.TypeLink:
		if item.IsPDFLink() {
			return Plan{Phases: []Phase{
				{{Stage: stage.Metadata}, {Stage: stage.Document, Required: true}},
				{{Stage: stage.Tags}, {Stage: stage.Classification}},
			}}
		}
		return Plan{Phases: []Phase{
			{{Stage: stage.Metadata, Required: true}},
			{{Stage: stage.Readable}, {Stage: stage.Classification}},
			{{Stage: stage.Tags}, {Stage: stage.Sentiment}},
		}}
	case domain.TypeImage:
		return Plan{Phases: []Phase{
			{{Stage: stage.Image, Required: true}, {Stage: stage.Classification}},
		}}
	case domain.TypeNote, domain.TypeVoice:
		return Plan{Phases: []Phase{
			{{Stage: stage.Tags, Required: true}, {Stage: stage.Sentiment}},
		}}
	default:
		return Plan{}
	}
}

// Stages lists every planned stage in execution order.
func (p Plan) Stages() []stage.Name {
	var out []stage.Name
	for _, phase := range p.Phases {
		for _, step := range phase {
			out = append(out, step.Stage)
		}
	}
	return out
}

// Empty reports whether the plan has no stages.
func (p Plan) Empty() bool {
	return len(p.Stages()) == 0
}
