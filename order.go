package processmap

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// executionOrder computes a dependency-first ordering of the steps. Each step
// is visited in declaration order and is appended only after all of its
// dependencies, recursively, have been appended. Re-encountering a step that
// is still on the visitation stack means the graph has a cycle.
func executionOrder(steps []*Step, stepsByID map[string]*Step) ([]*Step, error) {
	states := make(map[string]visitState, len(steps))
	order := make([]*Step, 0, len(steps))
	var stack []string

	var visit func(step *Step) error
	visit = func(step *Step) error {
		switch states[step.ID] {
		case visited:
			return nil
		case visiting:
			return newCyclicDependencyError(stack, step.ID)
		}
		states[step.ID] = visiting
		stack = append(stack, step.ID)

		for _, depID := range step.Dependencies {
			dep, ok := stepsByID[depID]
			if !ok {
				continue
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		states[step.ID] = visited
		order = append(order, step)
		return nil
	}

	for _, step := range steps {
		if err := visit(step); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// filterOrder keeps only the selected steps, preserving their relative order.
// A nil selection keeps every step.
func filterOrder(order []*Step, selected []string) []*Step {
	if selected == nil {
		return order
	}
	keep := make(map[string]bool, len(selected))
	for _, id := range selected {
		keep[id] = true
	}
	filtered := make([]*Step, 0, len(selected))
	for _, step := range order {
		if keep[step.ID] {
			filtered = append(filtered, step)
		}
	}
	return filtered
}

func newCyclicDependencyError(stack []string, repeated string) *CyclicDependencyError {
	start := 0
	for i, id := range stack {
		if id == repeated {
			start = i
			break
		}
	}
	cycle := make([]string, 0, len(stack)-start+1)
	cycle = append(cycle, stack[start:]...)
	cycle = append(cycle, repeated)
	return &CyclicDependencyError{Steps: cycle}
}
