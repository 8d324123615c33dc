package churn

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/GabrielNunesIT/logchurn/internal/config"
)

// Action is one step of a file's lifecycle.
type Action int

const (
	ActionDelete Action = iota
	ActionCreate
	ActionRotate
	ActionTruncate
	ActionWrite
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionCreate:
		return "create"
	case ActionRotate:
		return "rotate"
	case ActionTruncate:
		return "truncate"
	case ActionWrite:
		return "write"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Distribution is a discrete distribution over actions. Actions with zero
// weight are never drawn.
type Distribution struct {
	weights    config.WeightsConfig
	actions    []Action
	cumulative []int
	total      int
}

// NewDistribution builds the cumulative table for w.
func NewDistribution(w config.WeightsConfig) (*Distribution, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	d := &Distribution{weights: w}
	for _, e := range []struct {
		action Action
		weight int
	}{
		{ActionDelete, w.Delete},
		{ActionCreate, w.Create},
		{ActionRotate, w.Rotate},
		{ActionTruncate, w.Truncate},
		{ActionWrite, w.Write},
	} {
		if e.weight == 0 {
			continue
		}
		d.total += e.weight
		d.actions = append(d.actions, e.action)
		d.cumulative = append(d.cumulative, d.total)
	}
	if d.total == 0 {
		return nil, errors.New("empty action distribution")
	}
	return d, nil
}

// Total returns the sum of all weights.
func (d *Distribution) Total() int {
	return d.total
}

// Weights returns the weights the table was built from.
func (d *Distribution) Weights() config.WeightsConfig {
	return d.weights
}

// Pick maps n in [0, Total()) to an action.
func (d *Distribution) Pick(n int) Action {
	i := sort.SearchInts(d.cumulative, n+1)
	if i >= len(d.actions) {
		i = len(d.actions) - 1
	}
	return d.actions[i]
}

// Draw returns a random action.
func (d *Distribution) Draw(rng *rand.Rand) Action {
	return d.Pick(rng.IntN(d.total))
}

// Probability returns the chance of drawing a.
func (d *Distribution) Probability(a Action) float64 {
	prev := 0
	for i, act := range d.actions {
		if act == a {
			return float64(d.cumulative[i]-prev) / float64(d.total)
		}
		prev = d.cumulative[i]
	}
	return 0
}
