package allocation

import (
	"sort"

	"github.com/cartera-loan-servicing/internal/domain/obligation"
	"github.com/cartera-loan-servicing/internal/domain/shared"
)

// KindPriority defines the fixed waterfall order: a payment consumes mora
// first, then interest, then capital. Every allocation mode shares this
// single definition.
func KindPriority(kind shared.Kind) int {
	switch kind {
	case shared.KindMora:
		return 0
	case shared.KindInteres:
		return 1
	case shared.KindCapital:
		return 2
	default:
		return 3
	}
}

// SortForAllocation orders components for consumption: oldest due date
// first (components without a due date last), then installment number,
// then kind priority. All modes route through this one ordering.
func SortForAllocation(components []*obligation.Component) {
	sort.SliceStable(components, func(i, j int) bool {
		di, dj := components[i].DueDate, components[j].DueDate
		switch {
		case di == nil && dj != nil:
			return false
		case di != nil && dj == nil:
			return true
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.Before(*dj)
		}
		if components[i].Installment != components[j].Installment {
			return components[i].Installment < components[j].Installment
		}
		return KindPriority(components[i].Kind) < KindPriority(components[j].Kind)
	})
}

// sortByPriorityWithinInstallment orders one installment's components
// strictly by the waterfall priority
func sortByPriorityWithinInstallment(components []*obligation.Component) {
	sort.SliceStable(components, func(i, j int) bool {
		if pi, pj := KindPriority(components[i].Kind), KindPriority(components[j].Kind); pi != pj {
			return pi < pj
		}
		di, dj := components[i].DueDate, components[j].DueDate
		if di != nil && dj != nil && !di.Equal(*dj) {
			return di.Before(*dj)
		}
		return false
	})
}
