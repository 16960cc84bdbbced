package sim

import (
	"gonum.org/v1/gonum/mat"

	"mhtsim/internal/errors"
)

// TruthVector marks each hypothesis as a true null (true) or a false null.
// The first round(π0·M) entries are true nulls.
type TruthVector []bool

// NewTruthVector builds the truth vector for (m, π0)
func NewTruthVector(m int, pi0 float64) TruthVector {
	truth := make(TruthVector, m)
	m0 := NullCount(m, pi0)
	for j := 0; j < m0; j++ {
		truth[j] = true
	}
	return truth
}

// Nulls counts true nulls
func (t TruthVector) Nulls() int {
	n := 0
	for _, isNull := range t {
		if isNull {
			n++
		}
	}
	return n
}

// NonNulls counts false nulls (m1)
func (t TruthVector) NonNulls() int {
	return len(t) - t.Nulls()
}

// ReplicateBatch holds N replicate rows of M p-values each
type ReplicateBatch struct {
	data *mat.Dense
}

// NewReplicateBatch wraps an N×M matrix of p-values
func NewReplicateBatch(data *mat.Dense) *ReplicateBatch {
	return &ReplicateBatch{data: data}
}

// NewReplicateBatchFromRows copies rows into a batch; all rows must share a length.
func NewReplicateBatchFromRows(rows [][]float64) (*ReplicateBatch, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.InvalidConfiguration("replicate batch needs at least one row and one column")
	}
	m := len(rows[0])
	flat := make([]float64, 0, len(rows)*m)
	for i, row := range rows {
		if len(row) != m {
			return nil, errors.InvalidConfiguration("row %d has %d p-values, expected %d", i, len(row), m)
		}
		flat = append(flat, row...)
	}
	return &ReplicateBatch{data: mat.NewDense(len(rows), m, flat)}, nil
}

// Dims returns (replicates, hypotheses)
func (b *ReplicateBatch) Dims() (int, int) {
	return b.data.Dims()
}

// Replicates returns N
func (b *ReplicateBatch) Replicates() int {
	n, _ := b.data.Dims()
	return n
}

// Hypotheses returns M
func (b *ReplicateBatch) Hypotheses() int {
	_, m := b.data.Dims()
	return m
}

// Row returns replicate i without copying. Callers must not modify it.
func (b *ReplicateBatch) Row(i int) []float64 {
	return b.data.RawRowView(i)
}

// At returns the p-value of hypothesis j in replicate i
func (b *ReplicateBatch) At(i, j int) float64 {
	return b.data.At(i, j)
}

// Matrix exposes the underlying dense matrix (read-only by convention)
func (b *ReplicateBatch) Matrix() mat.Matrix {
	return b.data
}

// RejectionBatch holds reject/accept decisions with the same shape as a ReplicateBatch
type RejectionBatch struct {
	rows, cols int
	data       []bool
}

// NewRejectionBatch allocates an all-accept batch
func NewRejectionBatch(rows, cols int) *RejectionBatch {
	return &RejectionBatch{rows: rows, cols: cols, data: make([]bool, rows*cols)}
}

// NewRejectionBatchFromRows copies decision rows into a batch
func NewRejectionBatchFromRows(rows [][]bool) (*RejectionBatch, error) {
	if len(rows) == 0 {
		return nil, errors.InvalidConfiguration("rejection batch needs at least one row")
	}
	cols := len(rows[0])
	rb := NewRejectionBatch(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, errors.InvalidConfiguration("row %d has %d decisions, expected %d", i, len(row), cols)
		}
		copy(rb.Row(i), row)
	}
	return rb, nil
}

// Dims returns (replicates, hypotheses)
func (r *RejectionBatch) Dims() (int, int) {
	return r.rows, r.cols
}

// Row returns replicate i's decisions; writes go through to the batch.
func (r *RejectionBatch) Row(i int) []bool {
	return r.data[i*r.cols : (i+1)*r.cols]
}

// At reports whether hypothesis j was rejected in replicate i
func (r *RejectionBatch) At(i, j int) bool {
	return r.data[i*r.cols+j]
}

// Count returns the number of rejections in replicate i
func (r *RejectionBatch) Count(i int) int {
	n := 0
	for _, rejected := range r.Row(i) {
		if rejected {
			n++
		}
	}
	return n
}

// Total returns the number of rejections across the batch
func (r *RejectionBatch) Total() int {
	n := 0
	for _, rejected := range r.data {
		if rejected {
			n++
		}
	}
	return n
}
