// Package xl is the embedded training core: a single-precision linear /
// factorization-machine / field-aware FM trainer ported to Go.
//
// The package is deliberately opaque to the rest of the module. Everything
// above it goes through the capi adapter boundary: integer handles, status
// codes and a last-error side channel. Nothing outside capi may import xl.
package xl

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"github.com/hupe1980/fmgo/internal/memfs"
	"github.com/hupe1980/fmgo/internal/sched"
)

const (
	TaskBinary     = "binary"
	TaskRegression = "reg"
)

type hyperParams struct {
	task      string
	epoch     int
	lr        float32
	lambda    float32
	k         int
	seed      int64
	nthread   int
	quiet     bool
	earlyStop bool
	lockFree  bool
	fromFile  bool
	binOut    bool
	logPath   string
	metric    string
}

func defaultHyperParams() hyperParams {
	return hyperParams{
		task:    TaskBinary,
		epoch:   10,
		lr:      0.2,
		lambda:  0.00002,
		k:       4,
		seed:    1,
		nthread: 1,
	}
}

// Engine is one live trainer instance. It owns the assigned data matrices
// only by reference; their lifetime is the caller's problem (the adapter
// frees them explicitly).
type Engine struct {
	modelType ModelType
	hp        hyperParams

	train *DMatrix
	valid *DMatrix
	test  *DMatrix

	// predBuf backs PredictForMat results and is reused across calls.
	// Callers must copy out before the next engine call.
	predBuf []float32

	out io.Writer
}

// New creates an engine for the given model family ("linear", "fm", "ffm").
func New(modelType string) (*Engine, error) {
	mt, err := parseModelType(modelType)
	if err != nil {
		return nil, err
	}
	return &Engine{modelType: mt, hp: defaultHyperParams()}, nil
}

// SetOutput overrides the engine's verbose output stream. A nil writer
// resolves os.Stdout at print time.
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

func (e *Engine) printf(format string, args ...any) {
	w := e.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, format, args...)
}

// SetStr sets a string hyperparameter.
func (e *Engine) SetStr(key, value string) error {
	switch key {
	case "task":
		e.hp.task = value
	case "log":
		e.hp.logPath = value
	case "metric":
		e.hp.metric = value
	default:
		return fmt.Errorf("unknown string parameter %q", key)
	}
	return nil
}

// SetInt sets an integer hyperparameter.
func (e *Engine) SetInt(key string, value int) error {
	switch key {
	case "epoch":
		e.hp.epoch = value
	case "k":
		e.hp.k = value
	case "nthread":
		e.hp.nthread = value
	case "seed":
		e.hp.seed = int64(value)
	default:
		return fmt.Errorf("unknown integer parameter %q", key)
	}
	return nil
}

// SetFloat sets a float hyperparameter.
func (e *Engine) SetFloat(key string, value float64) error {
	switch key {
	case "lr":
		e.hp.lr = float32(value)
	case "lambda":
		e.hp.lambda = float32(value)
	default:
		return fmt.Errorf("unknown float parameter %q", key)
	}
	return nil
}

// SetBool sets a boolean hyperparameter.
func (e *Engine) SetBool(key string, value bool) error {
	switch key {
	case "quiet":
		e.hp.quiet = value
	case "early_stop":
		e.hp.earlyStop = value
	case "lock_free":
		e.hp.lockFree = value
	case "from_file":
		e.hp.fromFile = value
	case "bin_out":
		e.hp.binOut = value
	default:
		return fmt.Errorf("unknown boolean parameter %q", key)
	}
	return nil
}

// SetTrain assigns the training matrix.
func (e *Engine) SetTrain(m *DMatrix) { e.train = m }

// SetValid assigns the validation matrix.
func (e *Engine) SetValid(m *DMatrix) { e.valid = m }

// SetTest assigns the scoring matrix.
func (e *Engine) SetTest(m *DMatrix) { e.test = m }

// checkParams is the engine's historical pre-flight checker. It aborts via
// fatalf on invalid values; the adapter intercepts the panic.
func (e *Engine) checkParams() {
	if e.hp.task != TaskBinary && e.hp.task != TaskRegression {
		fatalf("invalid task %q: want %q or %q", e.hp.task, TaskBinary, TaskRegression)
	}
	if e.hp.epoch < 1 {
		fatalf("invalid epoch %d: must be >= 1", e.hp.epoch)
	}
	if !(e.hp.lr > 0) {
		fatalf("invalid learning rate %g: must be > 0", e.hp.lr)
	}
	if e.hp.lambda < 0 {
		fatalf("invalid lambda %g: must be >= 0", e.hp.lambda)
	}
	if e.modelType != ModelLinear && e.hp.k < 1 {
		fatalf("invalid k %d: must be >= 1", e.hp.k)
	}
}

func (e *Engine) banner(action string) {
	e.printf("[------------------------------------------------------------]\n")
	e.printf("[ fmgo core | model: %-6s | task: %-6s ]\n", e.modelType, e.hp.task)
	e.printf("[ ACTION ] %s\n", action)
}

// Fit trains on the assigned matrices and saves the model under path.
func (e *Engine) Fit(store *memfs.Store, path string) error {
	if e.train == nil {
		return fmt.Errorf("train data not set")
	}
	e.checkParams()

	e.banner("start training")

	model := e.initModel()
	threads := e.hp.nthread
	if threads < 1 {
		threads = 1
	}
	pool := sched.NewPool(threads)
	n := e.train.NumRows()

	prevValidLoss := float32(math.Inf(1))
	for ep := 1; ep <= e.hp.epoch; ep++ {
		total := pool.ThreadNumber()
		for id := 0; id < total; id++ {
			start, end := sched.Start(n, total, id), sched.End(n, total, id)
			pool.Submit(func() {
				for i := start; i < end; i++ {
					e.updateRow(model, i)
				}
			})
		}
		pool.Sync(total)

		if !e.hp.quiet {
			e.printf("[ epoch %3d ] train loss: %.6f\n", ep, e.loss(model, e.train))
		}

		if e.valid != nil {
			validLoss := e.loss(model, e.valid)
			if !e.hp.quiet {
				e.printf("[ epoch %3d ] valid loss: %.6f\n", ep, validLoss)
			}
			if e.hp.earlyStop && validLoss > prevValidLoss {
				e.printf("[ ACTION ] early stop at epoch %d\n", ep)
				break
			}
			prevValidLoss = validLoss
		}
	}

	e.banner("training done")

	return model.Save(store, path)
}

// initModel sizes the model from the training data and seeds the latent
// factors deterministically.
func (e *Engine) initModel() *Model {
	numFeature, numField := e.train.maxDims()
	if e.valid != nil {
		vf, vfl := e.valid.maxDims()
		if vf > numFeature {
			numFeature = vf
		}
		if vfl > numField {
			numField = vfl
		}
	}

	m := &Model{
		Type:       e.modelType,
		NumFeature: numFeature,
		NumField:   numField,
		K:          uint32(e.hp.k),
	}
	if m.Type == ModelLinear {
		m.K = 0
	}
	m.W = make([]float32, m.NumFeature)
	m.V = make([]float32, m.vLen())

	rng := rand.New(rand.NewSource(e.hp.seed))
	coef := float32(0.66 / math.Sqrt(float64(max(e.hp.k, 1))))
	for i := range m.V {
		m.V[i] = coef * float32(rng.Float64())
	}

	return m
}

// gradBase is d(loss)/d(score) for row label y and raw score pred.
func (e *Engine) gradBase(pred, y float32) float32 {
	if e.hp.task == TaskBinary {
		yy := float32(-1)
		if y > 0 {
			yy = 1
		}
		return -yy * sigmoid(-yy*pred)
	}
	return pred - y
}

// updateRow applies one plain SGD step with L2 regularization.
func (e *Engine) updateRow(m *Model, i int) {
	row := e.train.Rows[i]
	norm := e.train.Norm[i]
	scale := float32(math.Sqrt(float64(norm)))

	pred := m.Score(row, norm)
	g := e.gradBase(pred, e.train.Y[i])
	lr, lambda := e.hp.lr, e.hp.lambda

	m.Bias -= lr * (g + lambda*m.Bias)
	for _, n := range row {
		x := n.Value * scale
		m.W[n.Feature] -= lr * (g*x + lambda*m.W[n.Feature])
	}

	switch m.Type {
	case ModelFM:
		e.updateFM(m, row, scale, g)
	case ModelFFM:
		e.updateFFM(m, row, scale, g)
	}
}

func (e *Engine) updateFM(m *Model, row []Node, scale, g float32) {
	k := int(m.K)
	lr, lambda := e.hp.lr, e.hp.lambda

	// sum_i v_ik x_i per factor, with the pre-update values.
	sum := make([]float32, k)
	for _, n := range row {
		x := n.Value * scale
		base := int(n.Feature) * k
		for f := 0; f < k; f++ {
			sum[f] += m.V[base+f] * x
		}
	}

	for _, n := range row {
		x := n.Value * scale
		base := int(n.Feature) * k
		for f := 0; f < k; f++ {
			v := m.V[base+f]
			grad := g*(x*sum[f]-v*x*x) + lambda*v
			m.V[base+f] = v - lr*grad
		}
	}
}

func (e *Engine) updateFFM(m *Model, row []Node, scale, g float32) {
	k := int(m.K)
	nf := int(m.NumField)
	lr, lambda := e.hp.lr, e.hp.lambda

	for a := 0; a < len(row); a++ {
		na := row[a]
		for b := a + 1; b < len(row); b++ {
			nb := row[b]
			va := (int(na.Feature)*nf + int(nb.Field)) * k
			vb := (int(nb.Feature)*nf + int(na.Field)) * k
			xx := na.Value * nb.Value * scale * scale

			for f := 0; f < k; f++ {
				wa, wb := m.V[va+f], m.V[vb+f]
				m.V[va+f] = wa - lr*(g*wb*xx+lambda*wa)
				m.V[vb+f] = wb - lr*(g*wa*xx+lambda*wb)
			}
		}
	}
}

// loss computes the mean loss of the model over matrix data.
func (e *Engine) loss(m *Model, data *DMatrix) float32 {
	n := data.NumRows()
	if n == 0 {
		return 0
	}

	var total float64
	for i := 0; i < n; i++ {
		pred := m.Score(data.Rows[i], data.Norm[i])
		y := data.Y[i]
		if e.hp.task == TaskBinary {
			yy := float64(-1)
			if y > 0 {
				yy = 1
			}
			total += math.Log1p(math.Exp(-yy * float64(pred)))
		} else {
			d := float64(pred - y)
			total += 0.5 * d * d
		}
	}

	return float32(total / float64(n))
}

// PredictForMat loads the model stored under path and scores the assigned
// test matrix.
//
// The returned slice is the engine's internal prediction buffer. It is
// reused by the next call: callers must copy it before returning control.
func (e *Engine) PredictForMat(store *memfs.Store, path string) ([]float32, error) {
	if e.test == nil {
		return nil, fmt.Errorf("test data not set")
	}

	model, err := LoadModel(store, path)
	if err != nil {
		return nil, err
	}

	e.banner("start prediction")

	n := e.test.NumRows()
	if cap(e.predBuf) < n {
		e.predBuf = make([]float32, n)
	}
	e.predBuf = e.predBuf[:n]

	for i := 0; i < n; i++ {
		e.predBuf[i] = model.Score(e.test.Rows[i], e.test.Norm[i])
	}

	e.banner("prediction done")

	return e.predBuf, nil
}
