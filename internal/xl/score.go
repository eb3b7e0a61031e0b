package xl

import "math"

// Score computes the raw model output for one row. norm is the row's
// precomputed 1/sum(v*v) factor; every stored value is scaled by sqrt(norm)
// so the instance has unit L2 length.
//
// Entries whose feature (or field) index lies outside the trained range are
// skipped: scoring data that is wider than the training data contributes
// nothing rather than reading out of bounds.
func (m *Model) Score(row []Node, norm float32) float32 {
	scale := float32(math.Sqrt(float64(norm)))

	s := m.Bias
	for _, n := range row {
		if n.Feature >= m.NumFeature {
			continue
		}
		s += m.W[n.Feature] * n.Value * scale
	}

	switch m.Type {
	case ModelFM:
		s += m.scoreFM(row, scale)
	case ModelFFM:
		s += m.scoreFFM(row, scale)
	}

	return s
}

// scoreFM adds the second-order FM term
// 0.5 * sum_k [ (sum_i v_ik x_i)^2 - sum_i v_ik^2 x_i^2 ].
func (m *Model) scoreFM(row []Node, scale float32) float32 {
	k := int(m.K)
	var acc float32

	for f := 0; f < k; f++ {
		var sum, sumSq float32
		for _, n := range row {
			if n.Feature >= m.NumFeature {
				continue
			}
			x := n.Value * scale
			v := m.V[int(n.Feature)*k+f]
			sum += v * x
			sumSq += v * v * x * x
		}
		acc += sum*sum - sumSq
	}

	return 0.5 * acc
}

// scoreFFM adds the field-aware pair term
// sum_{i<j} <V[i, field_j], V[j, field_i]> x_i x_j.
func (m *Model) scoreFFM(row []Node, scale float32) float32 {
	k := int(m.K)
	nf := int(m.NumField)
	var acc float32

	for a := 0; a < len(row); a++ {
		na := row[a]
		if na.Feature >= m.NumFeature || na.Field >= m.NumField {
			continue
		}
		for b := a + 1; b < len(row); b++ {
			nb := row[b]
			if nb.Feature >= m.NumFeature || nb.Field >= m.NumField {
				continue
			}
			va := (int(na.Feature)*nf + int(nb.Field)) * k
			vb := (int(nb.Feature)*nf + int(na.Field)) * k
			xx := na.Value * nb.Value * scale * scale

			var dot float32
			for f := 0; f < k; f++ {
				dot += m.V[va+f] * m.V[vb+f]
			}
			acc += dot * xx
		}
	}

	return acc
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}
