package processmap

import (
	"fmt"
	"os"
	"sort"
)

// Options are used to configure a workflow.
type Options struct {
	ID    string  `json:"id" yaml:"id" validate:"required"`
	OrgID string  `json:"org_id,omitempty" yaml:"org_id,omitempty"`
	Name  string  `json:"name,omitempty" yaml:"name,omitempty"`
	Steps []*Step `json:"steps" yaml:"steps" validate:"required,min=1,dive,required"`
}

// Workflow is an immutable graph of steps connected by their dependencies.
type Workflow struct {
	id        string
	orgID     string
	name      string
	steps     []*Step
	stepsByID map[string]*Step
	order     []*Step
}

// New returns a new Workflow configured with the given options. The step
// graph must be acyclic and every dependency must name a step of the
// workflow.
func New(opts Options) (*Workflow, error) {
	if err := validateStruct("workflow", opts); err != nil {
		return nil, err
	}

	stepsByID := make(map[string]*Step, len(opts.Steps))
	for _, step := range opts.Steps {
		if _, exists := stepsByID[step.ID]; exists {
			return nil, fmt.Errorf("duplicate step id %q", step.ID)
		}
		stepsByID[step.ID] = step
	}

	if err := validateDependencies(opts.Steps, stepsByID); err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	order, err := executionOrder(opts.Steps, stepsByID)
	if err != nil {
		return nil, fmt.Errorf("workflow validation failed: %w", err)
	}

	return &Workflow{
		id:        opts.ID,
		orgID:     opts.OrgID,
		name:      opts.Name,
		steps:     opts.Steps,
		stepsByID: stepsByID,
		order:     order,
	}, nil
}

// ID returns the workflow id
func (w *Workflow) ID() string {
	return w.id
}

// OrgID returns the tenant the workflow belongs to
func (w *Workflow) OrgID() string {
	return w.orgID
}

// Name returns the workflow name
func (w *Workflow) Name() string {
	return w.name
}

// Steps returns the workflow steps in declaration order
func (w *Workflow) Steps() []*Step {
	return w.steps
}

// GetStep returns a step by id
func (w *Workflow) GetStep(id string) (*Step, bool) {
	step, ok := w.stepsByID[id]
	return step, ok
}

// StepIDs returns the ids of all steps in the workflow, sorted
func (w *Workflow) StepIDs() []string {
	ids := make([]string, 0, len(w.stepsByID))
	for id := range w.stepsByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ExecutionOrder returns the steps ordered so that every step appears after
// all of its transitive dependencies.
func (w *Workflow) ExecutionOrder() []*Step {
	order := make([]*Step, len(w.order))
	copy(order, w.order)
	return order
}

func validateDependencies(steps []*Step, stepsByID map[string]*Step) error {
	for _, step := range steps {
		for _, dep := range step.Dependencies {
			if _, ok := stepsByID[dep]; !ok {
				return fmt.Errorf("step %q depends on unknown step %q", step.ID, dep)
			}
		}
	}
	return nil
}

// LoadFile loads a workflow from a YAML file
func LoadFile(path string) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}
	return LoadBytes(data)
}

// LoadString loads a workflow from a YAML string
func LoadString(data string) (*Workflow, error) {
	return LoadBytes([]byte(data))
}

// LoadBytes loads a workflow from YAML or JSON data
func LoadBytes(data []byte) (*Workflow, error) {
	var opts Options
	if err := decodeDocument("workflow", workflowDocumentSchema, data, &opts); err != nil {
		return nil, err
	}
	return New(opts)
}
