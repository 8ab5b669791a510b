package allocation

import (
	"sort"
	"time"

	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/shared"
)

// Application records one component touched by the waterfall, with the
// balance it had before the payment reduced it
type Application struct {
	Component     *obligation.Component
	BalanceBefore int64
	Applied       int64
}

// runWaterfall consumes the payment amount against open components
// according to the requested mode. Components are mutated in place
// (balance reduced, status rederived); the returned applications preserve
// the before/after picture for the payment details.
//
// Invariant for every mode: the sum of applied amounts never exceeds the
// requested amount, and no component balance goes below zero.
func runWaterfall(components []*obligation.Component, req *shared.AllocationRequest) ([]Application, error) {
	open := filterOpen(components, req.Installment)
	if len(open) == 0 {
		return nil, shared.ErrNothingToAllocate
	}

	switch req.Mode {
	case shared.ModeCuota:
		return allocateCuota(open, req.Amount)
	case shared.ModeParcial:
		if req.Split != nil {
			return allocateSplit(open, *req.Split)
		}
		return allocateByKindOrder(open, req.Amount, shared.KindMora, shared.KindInteres, shared.KindCapital)
	case shared.ModeCapital:
		return allocateCapitalOnly(open, req.Amount)
	case shared.ModeMora:
		return allocateByKindOrder(open, req.Amount, shared.KindMora)
	default:
		return nil, shared.ErrInvalidMode{Mode: string(req.Mode)}
	}
}

// filterOpen keeps components with a positive balance, optionally scoped
// to a single installment number
func filterOpen(components []*obligation.Component, installment int) []*obligation.Component {
	var open []*obligation.Component
	for _, c := range components {
		if !c.Open() {
			continue
		}
		if installment > 0 && c.Installment != installment {
			continue
		}
		open = append(open, c)
	}
	return open
}

// allocateCuota walks installments oldest first, fully paying each one while
// funds remain. The first installment that cannot be fully covered receives
// a partial allocation in priority order and the walk stops: remaining money
// is deliberately not carried into later installments.
func allocateCuota(open []*obligation.Component, amount int64) ([]Application, error) {
	groups := groupByInstallment(open)

	var applications []Application
	remaining := amount
	for _, group := range groups {
		if remaining <= 0 {
			break
		}

		total := int64(0)
		for _, c := range group.components {
			total += c.Balance
		}

		sortByPriorityWithinInstallment(group.components)
		if remaining >= total {
			for _, c := range group.components {
				app, err := apply(c, c.Balance)
				if err != nil {
					return nil, err
				}
				applications = append(applications, app)
				remaining -= app.Applied
			}
			continue
		}

		// Partial installment: same priority order, then stop.
		for _, c := range group.components {
			if remaining <= 0 {
				break
			}
			app, err := apply(c, min64(remaining, c.Balance))
			if err != nil {
				return nil, err
			}
			applications = append(applications, app)
			remaining -= app.Applied
		}
		break
	}

	return applications, nil
}

// allocateByKindOrder drains whole kinds in the given sequence, oldest due
// date first within each kind. Covers automatic PARCIAL (mora, interest,
// capital) and the MORA-only mode.
func allocateByKindOrder(open []*obligation.Component, amount int64, kinds ...shared.Kind) ([]Application, error) {
	var applications []Application
	remaining := amount
	for _, kind := range kinds {
		if remaining <= 0 {
			break
		}
		matched := ofKind(open, kind)
		SortForAllocation(matched)
		for _, c := range matched {
			if remaining <= 0 {
				break
			}
			app, err := apply(c, min64(remaining, c.Balance))
			if err != nil {
				return nil, err
			}
			applications = append(applications, app)
			remaining -= app.Applied
		}
	}
	return applications, nil
}

// allocateSplit applies a caller-specified amount per kind. Each bucket is
// consumed within its own kind only; money a bucket cannot place stays
// unapplied rather than spilling into another kind.
func allocateSplit(open []*obligation.Component, split shared.Split) ([]Application, error) {
	var applications []Application
	buckets := []struct {
		kind   shared.Kind
		amount int64
	}{
		{shared.KindMora, split.Mora},
		{shared.KindInteres, split.Interes},
		{shared.KindCapital, split.Capital},
	}

	for _, bucket := range buckets {
		if bucket.amount <= 0 {
			continue
		}
		apps, err := allocateByKindOrder(open, bucket.amount, bucket.kind)
		if err != nil {
			return nil, err
		}
		applications = append(applications, apps...)
	}

	if split.Otros > 0 {
		apps, err := allocateOther(open, split.Otros)
		if err != nil {
			return nil, err
		}
		applications = append(applications, apps...)
	}

	return applications, nil
}

// allocateOther consumes the "otros" bucket against catalog-extended kinds
// outside the three core ones
func allocateOther(open []*obligation.Component, amount int64) ([]Application, error) {
	var others []*obligation.Component
	for _, c := range open {
		switch c.Kind {
		case shared.KindCapital, shared.KindInteres, shared.KindMora:
		default:
			others = append(others, c)
		}
	}
	SortForAllocation(others)

	var applications []Application
	remaining := amount
	for _, c := range others {
		if remaining <= 0 {
			break
		}
		app, err := apply(c, min64(remaining, c.Balance))
		if err != nil {
			return nil, err
		}
		applications = append(applications, app)
		remaining -= app.Applied
	}
	return applications, nil
}

// allocateCapitalOnly is the extraordinary principal paydown: capital
// components only, oldest installment number first, interest and mora
// untouched
func allocateCapitalOnly(open []*obligation.Component, amount int64) ([]Application, error) {
	capitals := ofKind(open, shared.KindCapital)
	sort.SliceStable(capitals, func(i, j int) bool {
		return capitals[i].Installment < capitals[j].Installment
	})

	var applications []Application
	remaining := amount
	for _, c := range capitals {
		if remaining <= 0 {
			break
		}
		app, err := apply(c, min64(remaining, c.Balance))
		if err != nil {
			return nil, err
		}
		applications = append(applications, app)
		remaining -= app.Applied
	}
	return applications, nil
}

type installmentGroup struct {
	number     int
	earliest   *time.Time
	components []*obligation.Component
}

// groupByInstallment buckets components into cuotas ordered by earliest due
// date, then installment number
func groupByInstallment(components []*obligation.Component) []*installmentGroup {
	byNumber := make(map[int]*installmentGroup)
	var groups []*installmentGroup
	for _, c := range components {
		group, ok := byNumber[c.Installment]
		if !ok {
			group = &installmentGroup{number: c.Installment}
			byNumber[c.Installment] = group
			groups = append(groups, group)
		}
		group.components = append(group.components, c)
		if c.DueDate != nil && (group.earliest == nil || c.DueDate.Before(*group.earliest)) {
			due := *c.DueDate
			group.earliest = &due
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ei, ej := groups[i].earliest, groups[j].earliest
		switch {
		case ei == nil && ej != nil:
			return false
		case ei != nil && ej == nil:
			return true
		case ei != nil && ej != nil && !ei.Equal(*ej):
			return ei.Before(*ej)
		}
		return groups[i].number < groups[j].number
	})
	return groups
}

func ofKind(components []*obligation.Component, kind shared.Kind) []*obligation.Component {
	var matched []*obligation.Component
	for _, c := range components {
		if c.Kind == kind {
			matched = append(matched, c)
		}
	}
	return matched
}

func apply(c *obligation.Component, amount int64) (Application, error) {
	before := c.Balance
	if err := c.Apply(amount); err != nil {
		return Application{}, err
	}
	return Application{Component: c, BalanceBefore: before, Applied: amount}, nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
