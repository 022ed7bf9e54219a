/* pcepd - PCEP session simulator daemon
 *
 * Copyright (C) 2024 pcepd authors.
 *
 * This file is licensed under the terms of the MIT License, as found in LICENSE.md.
 */

package comparison

import "golang.org/x/exp/constraints"

// Min returns the smaller of two values.
func Min[V constraints.Ordered](a, b V) V {
	if a < b {
		return a
	} else {
		return b
	}
}

// Max returns the larger of two values.
func Max[V constraints.Ordered](a, b V) V {
	if a > b {
		return a
	} else {
		return b
	}
}

// Clamp limits v to the closed range [lo, hi].
func Clamp[V constraints.Ordered](v, lo, hi V) V {
	return Max(lo, Min(v, hi))
}

// Within reports whether v lies in the closed range [lo, hi].
func Within[V constraints.Ordered](v, lo, hi V) bool {
	return v >= lo && v <= hi
}
