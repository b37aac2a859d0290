// Package pins resolves dependency pins against the set of versions a
// package index advertises.
package pins

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/vk/envgridgo/internal/config"
)

// Resolved is a pin bound to the concrete version that will be provisioned.
type Resolved struct {
	Package string
	Version *semver.Version
}

// Resolve binds every pin to the highest available version satisfying its
// constraint. Available holds the versions the index advertises per package.
func Resolve(pinList []*config.Pin, available map[string][]*semver.Version) ([]*Resolved, error) {
	var resolved []*Resolved
	for _, pin := range pinList {
		versions, ok := available[pin.Package]
		if !ok || len(versions) == 0 {
			return nil, fmt.Errorf("package %q is not available in the index", pin.Package)
		}

		best, err := pick(pin, versions)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, &Resolved{Package: pin.Package, Version: best})
	}
	return resolved, nil
}

// pick returns the highest version satisfying the pin's constraint. An empty
// constraint admits any version.
func pick(pin *config.Pin, versions []*semver.Version) (*semver.Version, error) {
	sorted := make([]*semver.Version, len(versions))
	copy(sorted, versions)
	sort.Sort(sort.Reverse(semver.Collection(sorted)))

	if pin.Constraint == "" {
		return sorted[0], nil
	}

	constraint, err := semver.NewConstraint(pin.Constraint)
	if err != nil {
		return nil, fmt.Errorf("package %q: invalid constraint %q: %w", pin.Package, pin.Constraint, err)
	}
	for _, v := range sorted {
		if constraint.Check(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("package %q: no available version satisfies %q", pin.Package, pin.Constraint)
}
