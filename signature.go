package redirect

// checkSignatures verifies that replacement can stand in for original at any
// call site. The effective parameter lists must be identical and so must the
// results; nothing is widened.
func checkSignatures(original, replacement MethodRef) error {
	diffs := diffTypes(PositionParam, original.EffectiveParams(), replacement.EffectiveParams())
	diffs = append(diffs, diffTypes(PositionResult, original.Results, replacement.Results)...)
	if len(diffs) == 0 {
		return nil
	}

	return &SignatureMismatchError{
		Original:    original,
		Replacement: replacement,
		Differences: diffs,
	}
}

func diffTypes(pos Position, a, b []Type) []TypeDifference {
	var diffs []TypeDifference

	n := max(len(a), len(b))
	for i := range n {
		var at, bt Type
		if i < len(a) {
			at = a[i]
		}
		if i < len(b) {
			bt = b[i]
		}
		if at != bt {
			diffs = append(diffs, TypeDifference{
				Position:    pos,
				Index:       i,
				Original:    at,
				Replacement: bt,
			})
		}
	}

	return diffs
}
