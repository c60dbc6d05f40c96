package kitchen

import (
	"sort"

	"cookduel/card"
)

// ProvidedNames 计算所选牌提供的食材名: a WILDCARD provides its assignment, any other card its own name.
func ProvidedNames(selected []card.Card, assignments map[string]string) ([]string, error) {
	names := make([]string, 0, len(selected))
	for _, c := range selected {
		if c.IsWildcard() {
			name, ok := assignments[c.ID]
			if !ok || name == "" {
				return nil, ErrUnassignedWildcard
			}
			names = append(names, name)
			continue
		}
		names = append(names, c.Name)
	}
	return names, nil
}

// ValidateRecipe 校验所选牌是否恰好满足订单 (按数量比较多重集合).
func ValidateRecipe(order card.Card, selected []card.Card, assignments map[string]string) error {
	if !order.IsOrder() {
		return ErrNotAnOrder
	}
	names, err := ProvidedNames(selected, assignments)
	if err != nil {
		return err
	}
	if !card.SameMultiset(order.Ingredients, names) {
		return ErrMissingIngredients
	}
	return nil
}

func CanCook(order card.Card, selected []card.Card, assignments map[string]string) bool {
	return ValidateRecipe(order, selected, assignments) == nil
}

// PlanRecipe picks hand cards that cook order, filling gaps with WILDCARD cards.
// Real ingredients are preferred over wildcards. ok is false when the hand cannot cover the order.
func PlanRecipe(order card.Card, hand card.List) (ids []string, assignments map[string]string, ok bool) {
	if !order.IsOrder() {
		return nil, nil, false
	}
	used := make(map[string]bool)
	var missing []string
	for _, need := range order.Ingredients {
		found := false
		for _, c := range hand {
			if used[c.ID] || !c.IsIngredient() || c.Name != need {
				continue
			}
			used[c.ID] = true
			ids = append(ids, c.ID)
			found = true
			break
		}
		if !found {
			missing = append(missing, need)
		}
	}

	var wilds []string
	for _, c := range hand {
		if c.IsWildcard() {
			wilds = append(wilds, c.ID)
		}
	}
	if len(wilds) < len(missing) {
		return nil, nil, false
	}
	sort.Strings(wilds)
	if len(missing) > 0 {
		assignments = make(map[string]string, len(missing))
	}
	for i, need := range missing {
		ids = append(ids, wilds[i])
		assignments[wilds[i]] = need
	}
	return ids, assignments, true
}
