package xl

// Node is one stored entry of a sparse row.
type Node struct {
	Field   uint32
	Feature uint32
	Value   float32
}

// DMatrix is the engine's row-oriented sparse data container. Both the
// dense and the CSR construction paths produce this exact structure.
type DMatrix struct {
	Rows     [][]Node
	Y        []float32
	Norm     []float32
	HasLabel bool
}

// NewDMatrix creates an empty matrix.
func NewDMatrix() *DMatrix {
	return &DMatrix{}
}

// AddRow appends an empty row with label 0 and norm 1.
func (m *DMatrix) AddRow() {
	m.Rows = append(m.Rows, nil)
	m.Y = append(m.Y, 0)
	m.Norm = append(m.Norm, 1)
}

// AddNode appends an entry to row i.
func (m *DMatrix) AddNode(i int, feature uint32, value float32, field uint32) {
	m.Rows[i] = append(m.Rows[i], Node{Field: field, Feature: feature, Value: value})
}

// NumRows reports the number of rows.
func (m *DMatrix) NumRows() int {
	return len(m.Rows)
}

// Reset drops all contents so the backing arrays can be reclaimed.
func (m *DMatrix) Reset() {
	m.Rows = nil
	m.Y = nil
	m.Norm = nil
	m.HasLabel = false
}

// maxDims returns one past the largest feature and field index present.
func (m *DMatrix) maxDims() (numFeature, numField uint32) {
	numField = 1
	for _, row := range m.Rows {
		for _, n := range row {
			if n.Feature >= numFeature {
				numFeature = n.Feature + 1
			}
			if n.Field >= numField {
				numField = n.Field + 1
			}
		}
	}
	return numFeature, numField
}

// BuildDense constructs a DMatrix from a row-major dense array.
//
// Entries that are exactly zero are skipped, matching the engine's
// file-based loader: a stored zero would contribute nothing to the score
// but would still dilute the row norm. The norm is 1/sum(v*v) over the
// stored entries, with all-zero rows pinned to exactly 1.0 so downstream
// gradients stay finite.
//
// Values are narrowed to float32 before the zero test and accumulation;
// the engine operates in single precision throughout.
func BuildDense(data []float64, nrow, ncol int, label []float64, fieldMap []int32) *DMatrix {
	m := NewDMatrix()
	m.HasLabel = label != nil

	for i := 0; i < nrow; i++ {
		m.AddRow()
		if label != nil {
			m.Y[i] = float32(label[i])
		}
		var sumSq float32
		for j := 0; j < ncol; j++ {
			v := float32(data[i*ncol+j])
			if v == 0 {
				continue
			}
			var field uint32
			if fieldMap != nil {
				field = uint32(fieldMap[j])
			}
			m.AddNode(i, uint32(j), v, field)
			sumSq += v * v
		}
		if sumSq > 0 {
			m.Norm[i] = 1 / sumSq
		} else {
			m.Norm[i] = 1
		}
	}

	return m
}

// BuildCSR constructs a DMatrix from compressed-sparse-row triples. The
// accumulation and normalization match BuildDense; no zero test is needed
// because CSR never stores explicit zeros.
func BuildCSR(values []float64, colIndices, rowPtr []int32, nrow, ncol int, label []float64, fieldMap []int32) *DMatrix {
	_ = ncol

	m := NewDMatrix()
	m.HasLabel = label != nil

	for i := 0; i < nrow; i++ {
		m.AddRow()
		if label != nil {
			m.Y[i] = float32(label[i])
		}
		var sumSq float32
		for j := rowPtr[i]; j < rowPtr[i+1]; j++ {
			col := colIndices[j]
			v := float32(values[j])
			var field uint32
			if fieldMap != nil {
				field = uint32(fieldMap[col])
			}
			m.AddNode(i, uint32(col), v, field)
			sumSq += v * v
		}
		if sumSq > 0 {
			m.Norm[i] = 1 / sumSq
		} else {
			m.Norm[i] = 1
		}
	}

	return m
}
