package inject

import (
	"errors"
)

// Validate plans every registered key, and the collection of every key
// registered more than once, and returns all structural errors joined:
// missing bindings, cycles, scope mismatches and, for strict registries,
// ambiguity. Nothing is built.
func (r *Registry) Validate() error {
	var (
		errs []error
		seen = make(map[string]bool)
	)

	for _, key := range r.Keys() {
		targets := []TypeKey{key}
		if len(r.Providers(key)) > 1 {
			targets = append(targets, key.All())
		}

		for _, target := range targets {
			_, err := r.plan(target)
			if err == nil || seen[err.Error()] {
				continue
			}
			seen[err.Error()] = true
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
