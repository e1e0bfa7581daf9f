package grading

import (
	"fmt"
	"math"

	"github.com/trezcool/portal/core"
)

// Component is one of the four assessed parts of a course.
type Component string

const (
	Quiz       Component = "quiz"
	Assignment Component = "assignment"
	Midterm    Component = "midterm"
	Final      Component = "final"
)

// Components lists every Component, in display order.
var Components = []Component{Quiz, Assignment, Midterm, Final}

// weightSumTolerance absorbs float noise when checking that weights sum to 1.
const weightSumTolerance = 1e-9

// Scores holds the raw marks of the four components. Marks are never clamped.
type Scores struct {
	Quiz       float64 `json:"quiz"`
	Assignment float64 `json:"assignment"`
	Midterm    float64 `json:"midterm"`
	Final      float64 `json:"final"`
}

func (s Scores) Get(c Component) float64 {
	switch c {
	case Quiz:
		return s.Quiz
	case Assignment:
		return s.Assignment
	case Midterm:
		return s.Midterm
	case Final:
		return s.Final
	}
	return 0
}

// Weights maps every Component to its share of the total.
type Weights map[Component]float64

// DefaultWeights returns the portal's weight set: quiz 20%, assignment 20%, midterm 25%, final 35%.
func DefaultWeights() Weights {
	return Weights{
		Quiz:       .20,
		Assignment: .20,
		Midterm:    .25,
		Final:      .35,
	}
}

// NewWeights builds Weights from a configuration map keyed by component name.
func NewWeights(m map[string]float64) (Weights, error) {
	w := make(Weights, len(m))
	for name, v := range m {
		c := Component(core.CleanString(name, true /* lower */))
		if !c.valid() {
			return nil, core.NewConfigurationError("weights", fmt.Sprintf("unknown component %q", name))
		}
		w[c] = v
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate checks that every component has a non-negative weight and that weights sum to 1.
func (w Weights) Validate() error {
	var sum float64
	for _, c := range Components {
		v, ok := w[c]
		if !ok {
			return core.NewConfigurationError("weights", fmt.Sprintf("missing weight for %q", c))
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return core.NewConfigurationError("weights", fmt.Sprintf("invalid weight for %q: %v", c, v))
		}
		sum += v
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return core.NewConfigurationError("weights", fmt.Sprintf("weights must sum to 1 (got %v)", sum))
	}
	return nil
}

func (c Component) valid() bool {
	for _, cc := range Components {
		if c == cc {
			return true
		}
	}
	return false
}

// ComputeTotal returns Σ score×weight over the four components.
// A missing weight is a ConfigurationError: it is never treated as 0.
func ComputeTotal(s Scores, w Weights) (float64, error) {
	var total float64
	for _, c := range Components {
		weight, ok := w[c]
		if !ok {
			return 0, core.NewConfigurationError("weights", fmt.Sprintf("missing weight for %q", c))
		}
		total += s.Get(c) * weight
	}
	return total, nil
}

type (
	// Assessment is what a set of Scores is worth: total rounded to one decimal, letter grade and GPA.
	Assessment struct {
		Total float64 `json:"total"`
		Grade string  `json:"grade"`
		GPA   float64 `json:"gpa"`
	}

	// Contribution is the share of the total brought by a single component.
	Contribution struct {
		Component Component `json:"component"`
		Score     float64   `json:"score"`
		Weight    float64   `json:"weight"`
		Points    float64   `json:"points"`
	}

	// Engine grades Scores against a validated weight set and grade scale.
	Engine struct {
		weights Weights
		scale   Scale
	}
)

func NewEngine(w Weights, sc Scale) (*Engine, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &Engine{weights: w, scale: sc}, nil
}

// NewEngineFromConfig builds an Engine from the configured weights and the default grade scale.
func NewEngineFromConfig(conf *core.Config) (*Engine, error) {
	w, err := NewWeights(conf.Grading.Weights)
	if err != nil {
		return nil, err
	}
	return NewEngine(w, DefaultScale())
}

func (e *Engine) Weights() Weights { return e.weights }
func (e *Engine) Scale() Scale     { return e.scale }

// Assess computes the total of s, rounded to one decimal, and grades that rounded total.
func (e *Engine) Assess(s Scores) (Assessment, error) {
	total, err := ComputeTotal(s, e.weights)
	if err != nil {
		return Assessment{}, err
	}
	total = core.Round(total, 1)
	grade := e.scale.GradeFor(total)
	return Assessment{
		Total: total,
		Grade: grade,
		GPA:   e.scale.GPAFor(grade),
	}, nil
}

// Breakdown details the weighted points brought by each component.
func (e *Engine) Breakdown(s Scores) []Contribution {
	contribs := make([]Contribution, 0, len(Components))
	for _, c := range Components {
		w := e.weights[c]
		contribs = append(contribs, Contribution{
			Component: c,
			Score:     s.Get(c),
			Weight:    w,
			Points:    core.Round(s.Get(c)*w, 2),
		})
	}
	return contribs
}
