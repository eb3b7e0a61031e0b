package xl

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/hupe1980/fmgo/internal/memfs"
)

const (
	modelMagic   uint32 = 0x464D4D31 // "FMM1"
	modelVersion uint32 = 1
)

// ModelType selects the score function family.
type ModelType uint8

const (
	ModelLinear ModelType = iota
	ModelFM
	ModelFFM
)

func (t ModelType) String() string {
	switch t {
	case ModelLinear:
		return "linear"
	case ModelFM:
		return "fm"
	case ModelFFM:
		return "ffm"
	default:
		return fmt.Sprintf("ModelType(%d)", uint8(t))
	}
}

// parseModelType maps the create-call identifier to a ModelType.
func parseModelType(s string) (ModelType, error) {
	switch s {
	case "linear":
		return ModelLinear, nil
	case "fm":
		return ModelFM, nil
	case "ffm":
		return ModelFFM, nil
	default:
		return 0, fmt.Errorf("unknown model type %q (want linear, fm or ffm)", s)
	}
}

// Model holds trained parameters.
//
// V is the latent-factor block: for FM it is indexed [feature*K + k], for
// FFM [(feature*NumField + field)*K + k]. Linear models carry no V.
type Model struct {
	Type       ModelType
	NumFeature uint32
	NumField   uint32
	K          uint32
	Bias       float32
	W          []float32
	V          []float32
}

func (m *Model) vLen() int {
	switch m.Type {
	case ModelFM:
		return int(m.NumFeature) * int(m.K)
	case ModelFFM:
		return int(m.NumFeature) * int(m.NumField) * int(m.K)
	default:
		return 0
	}
}

// Encode serializes the model to its binary wire form (little endian).
func (m *Model) Encode() ([]byte, error) {
	var buf bytes.Buffer

	for _, v := range []any{
		modelMagic,
		modelVersion,
		uint8(m.Type),
		m.NumFeature,
		m.NumField,
		m.K,
		m.Bias,
		m.W,
		m.V,
	} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("encode model: %w", err)
		}
	}

	return buf.Bytes(), nil
}

// DecodeModel parses a model from its binary wire form.
func DecodeModel(data []byte) (*Model, error) {
	r := bytes.NewReader(data)

	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("decode model header: %w", err)
	}
	if magic != modelMagic {
		return nil, fmt.Errorf("bad model magic %#08x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("decode model header: %w", err)
	}
	if version != modelVersion {
		return nil, fmt.Errorf("unsupported model version %d", version)
	}

	m := &Model{}
	var typ uint8
	for _, v := range []any{&typ, &m.NumFeature, &m.NumField, &m.K, &m.Bias} {
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("decode model: %w", err)
		}
	}
	m.Type = ModelType(typ)
	if m.Type > ModelFFM {
		return nil, fmt.Errorf("bad model type %d", typ)
	}

	// The declared dimensions must account for the remaining payload
	// exactly, checked before allocating: crafted headers must not be able
	// to demand arbitrarily large weight arrays. Division keeps the
	// products from wrapping uint64.
	if r.Len()%4 != 0 {
		return nil, fmt.Errorf("decode model: %d trailing bytes", r.Len()%4)
	}
	slots := uint64(r.Len()) / 4
	if uint64(m.NumFeature) > slots {
		return nil, fmt.Errorf("decode model: dimensions exceed payload")
	}
	vSlots := slots - uint64(m.NumFeature)
	var vNeed uint64
	switch m.Type {
	case ModelFM:
		if m.K != 0 && uint64(m.NumFeature) > vSlots/uint64(m.K) {
			return nil, fmt.Errorf("decode model: dimensions exceed payload")
		}
		vNeed = uint64(m.NumFeature) * uint64(m.K)
	case ModelFFM:
		if m.K != 0 && m.NumField != 0 {
			if uint64(m.NumFeature) > vSlots/uint64(m.K)/uint64(m.NumField) {
				return nil, fmt.Errorf("decode model: dimensions exceed payload")
			}
			vNeed = uint64(m.NumFeature) * uint64(m.NumField) * uint64(m.K)
		}
	}
	if vNeed != vSlots {
		return nil, fmt.Errorf("decode model: dimensions do not match payload size")
	}

	m.W = make([]float32, m.NumFeature)
	if err := binary.Read(r, binary.LittleEndian, m.W); err != nil {
		return nil, fmt.Errorf("decode model weights: %w", err)
	}
	m.V = make([]float32, m.vLen())
	if err := binary.Read(r, binary.LittleEndian, m.V); err != nil {
		return nil, fmt.Errorf("decode model factors: %w", err)
	}

	return m, nil
}

// Save writes the encoded model under path.
func (m *Model) Save(store *memfs.Store, path string) error {
	data, err := m.Encode()
	if err != nil {
		return err
	}
	store.WriteFile(path, data)
	return nil
}

// LoadModel reads and decodes the model stored under path.
func LoadModel(store *memfs.Store, path string) (*Model, error) {
	data, err := store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return DecodeModel(data)
}
