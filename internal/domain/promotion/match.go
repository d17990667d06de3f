package promotion

import "github.com/shopspring/decimal"

// EligibleLine is a cart line matched by a promotion target, carrying the
// target's value override when one is set.
type EligibleLine struct {
	CartLine
	// ValueOverride is the matched target's SpecificValue, or nil when the
	// target defers to the promotion-level value.
	ValueOverride *decimal.Decimal
}

// Match partitions cart lines into eligible and ineligible against a target
// list. A line matches a target when the product ids are equal and the
// target either names the line's variant or names no variant at all. A line
// matches at most one target; when both a variant-level and a product-level
// target could match, the variant-level one wins.
//
// Pure function over its inputs.
func Match(lines []CartLine, targets []Target) (eligible []EligibleLine, ineligible []CartLine) {
	type key struct{ product, variant string }

	// First target wins within the same specificity, matching the ordered
	// semantics of the target list.
	byVariant := make(map[key]*Target, len(targets))
	byProduct := make(map[string]*Target, len(targets))
	for i := range targets {
		t := &targets[i]
		if t.VariantID != nil {
			k := key{t.ProductID, *t.VariantID}
			if _, ok := byVariant[k]; !ok {
				byVariant[k] = t
			}
			continue
		}
		if _, ok := byProduct[t.ProductID]; !ok {
			byProduct[t.ProductID] = t
		}
	}

	for _, line := range lines {
		t := byVariant[key{line.ProductID, line.VariantID}]
		if t == nil {
			t = byProduct[line.ProductID]
		}
		if t == nil {
			ineligible = append(ineligible, line)
			continue
		}
		eligible = append(eligible, EligibleLine{
			CartLine:      line,
			ValueOverride: t.SpecificValue,
		})
	}
	return eligible, ineligible
}
