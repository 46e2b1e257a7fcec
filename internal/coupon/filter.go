package coupon

import "kart-checkout/internal/model"

// BindAll binds every definition against order, in catalogue order.
// The first definition that cannot be bound fails the whole computation.
func (r *RuleSet) BindAll(defs []model.CouponDefinition, order OrderContext) ([]State, error) {
	states := make([]State, 0, len(defs))
	for _, def := range defs {
		state, err := r.Bind(def, order)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	return states, nil
}

// Available returns the valid subset of BindAll, keeping catalogue order.
// It recomputes from scratch on every call, so identical inputs always
// yield an identical sequence.
func (r *RuleSet) Available(defs []model.CouponDefinition, order OrderContext) ([]State, error) {
	states, err := r.BindAll(defs, order)
	if err != nil {
		return nil, err
	}
	return Valid(states), nil
}

// Valid filters states down to the ones that currently apply.
func Valid(states []State) []State {
	valid := make([]State, 0, len(states))
	for _, s := range states {
		if s.IsValid() {
			valid = append(valid, s)
		}
	}
	return valid
}
