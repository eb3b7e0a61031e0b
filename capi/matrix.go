package capi

import "github.com/hupe1980/fmgo/internal/xl"

// Matrix construction validates everything before touching the core, so a
// malformed call never leaves a handle behind.

// CreateDenseMatrix builds the core's row-oriented representation from a
// row-major dense array. label and fieldMap are optional (nil). Zero
// entries are skipped; see the marshaling rules on xl.BuildDense. The
// returned handle must be released with FreeMatrix.
func CreateDenseMatrix(data []float64, nrow, ncol int, label []float64, fieldMap []int32) (MatrixHandle, Status) {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	if data == nil {
		setErrorf("dense matrix: nil data")
		return 0, StatusError
	}
	if nrow <= 0 || ncol <= 0 {
		setErrorf("dense matrix: non-positive dimensions %dx%d", nrow, ncol)
		return 0, StatusError
	}
	if len(data) != nrow*ncol {
		setErrorf("dense matrix: data length %d, want %d", len(data), nrow*ncol)
		return 0, StatusError
	}
	if label != nil && len(label) != nrow {
		setErrorf("dense matrix: label length %d, want %d rows", len(label), nrow)
		return 0, StatusError
	}
	if st := checkFieldMap(fieldMap, ncol, "dense matrix"); st != StatusOK {
		return 0, st
	}

	m := xl.BuildDense(data, nrow, ncol, label, fieldMap)
	h := MatrixHandle(allocID())
	state.matrices[h] = m
	return h, StatusOK
}

// CreateCSRMatrix builds the core's representation from compressed-sparse-
// row triples. The returned handle must be released with FreeMatrix.
func CreateCSRMatrix(values []float64, colIndices, rowPtr []int32, nrow, ncol int, label []float64, fieldMap []int32) (MatrixHandle, Status) {
	state.mu.Lock()
	defer state.mu.Unlock()
	begin()

	if values == nil || colIndices == nil || rowPtr == nil {
		setErrorf("csr matrix: nil array argument")
		return 0, StatusError
	}
	if nrow <= 0 || ncol <= 0 {
		setErrorf("csr matrix: non-positive dimensions %dx%d", nrow, ncol)
		return 0, StatusError
	}
	if len(rowPtr) != nrow+1 {
		setErrorf("csr matrix: rowPtr length %d, want %d", len(rowPtr), nrow+1)
		return 0, StatusError
	}
	if rowPtr[0] != 0 {
		setErrorf("csr matrix: rowPtr must start at 0, got %d", rowPtr[0])
		return 0, StatusError
	}
	for i := 0; i < nrow; i++ {
		if rowPtr[i+1] < rowPtr[i] {
			setErrorf("csr matrix: rowPtr not monotonic at row %d", i)
			return 0, StatusError
		}
	}
	if int(rowPtr[nrow]) != len(values) {
		setErrorf("csr matrix: rowPtr end %d, want %d values", rowPtr[nrow], len(values))
		return 0, StatusError
	}
	if len(colIndices) != len(values) {
		setErrorf("csr matrix: colIndices length %d, want %d", len(colIndices), len(values))
		return 0, StatusError
	}
	for _, c := range colIndices {
		if c < 0 || int(c) >= ncol {
			setErrorf("csr matrix: column index %d out of range [0,%d)", c, ncol)
			return 0, StatusError
		}
	}
	if label != nil && len(label) != nrow {
		setErrorf("csr matrix: label length %d, want %d rows", len(label), nrow)
		return 0, StatusError
	}
	if st := checkFieldMap(fieldMap, ncol, "csr matrix"); st != StatusOK {
		return 0, st
	}

	m := xl.BuildCSR(values, colIndices, rowPtr, nrow, ncol, label, fieldMap)
	h := MatrixHandle(allocID())
	state.matrices[h] = m
	return h, StatusOK
}

func checkFieldMap(fieldMap []int32, ncol int, op string) Status {
	if fieldMap == nil {
		return StatusOK
	}
	if len(fieldMap) != ncol {
		setErrorf("%s: field map length %d, want %d columns", op, len(fieldMap), ncol)
		return StatusError
	}
	for j, f := range fieldMap {
		if f < 0 {
			setErrorf("%s: negative field id %d at column %d", op, f, j)
			return StatusError
		}
	}
	return StatusOK
}

// FreeMatrix releases a matrix handle and drops its contents. Callers free
// every matrix exactly once, on every exit path of the call that used it.
func FreeMatrix(h MatrixHandle) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if m, ok := state.matrices[h]; ok {
		m.Reset()
		delete(state.matrices, h)
		state.live.Remove(uint64(h))
	}
}
