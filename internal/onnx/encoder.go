package onnx

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
	ort "github.com/yalue/onnxruntime_go"
)

// Config describes where the runtime, model and tokenizer live on disk.
type Config struct {
	OrtLib        string
	ModelPath     string
	TokenizerPath string
	MaxSeqLen     int
	InputNames    []string
	OutputName    string
	NumLabels     int
}

// Encoder runs a sequence classification model through ONNX Runtime.
// A single Encoder is safe for concurrent use; calls serialize on the session.
type Encoder struct {
	mu      sync.Mutex
	cfg     Config
	tk      *tokenizer.Tokenizer
	session *ort.DynamicAdvancedSession
}

var (
	envOnce sync.Once
	envErr  error
)

func initEnvironment(lib string) error {
	envOnce.Do(func() {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Init loads the tokenizer and creates the inference session.
func (e *Encoder) Init(cfg Config) error {
	if cfg.ModelPath == "" {
		return errors.New("model path is required")
	}
	if cfg.TokenizerPath == "" {
		return errors.New("tokenizer path is required")
	}
	if cfg.MaxSeqLen <= 0 {
		cfg.MaxSeqLen = 512
	}
	if len(cfg.InputNames) == 0 {
		cfg.InputNames = []string{"input_ids", "attention_mask"}
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "logits"
	}
	if cfg.NumLabels <= 0 {
		cfg.NumLabels = 3
	}
	if err := initEnvironment(cfg.OrtLib); err != nil {
		return fmt.Errorf("init onnxruntime: %w", err)
	}
	tk, err := pretrained.FromFile(cfg.TokenizerPath)
	if err != nil {
		return fmt.Errorf("load tokenizer: %w", err)
	}
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath, cfg.InputNames, []string{cfg.OutputName}, nil)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg
	e.tk = tk
	e.session = session
	return nil
}

// Close destroys the session. The process-wide runtime environment stays up.
func (e *Encoder) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		_ = e.session.Destroy()
		e.session = nil
	}
	e.tk = nil
}

// MaxSeqLen returns the truncation length in tokens.
func (e *Encoder) MaxSeqLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.MaxSeqLen
}

// Tokenize converts text into truncated input ids and attention mask.
func (e *Encoder) Tokenize(text string) ([]int64, []int64, error) {
	e.mu.Lock()
	tk := e.tk
	maxLen := e.cfg.MaxSeqLen
	e.mu.Unlock()
	if tk == nil {
		return nil, nil, errors.New("encoder is not initialized")
	}
	enc, err := tk.EncodeSingle(text, true)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenize: %w", err)
	}
	ids, mask := Truncate(enc.GetIds(), enc.GetAttentionMask(), maxLen)
	return toInt64(ids), toInt64(mask), nil
}

// Logits returns the raw classifier outputs for a single text.
func (e *Encoder) Logits(text string) ([]float32, error) {
	ids, mask, err := e.Tokenize(text)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.New("tokenizer produced no tokens")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, errors.New("encoder is not initialized")
	}

	shape := ort.NewShape(1, int64(len(ids)))
	inputs := make([]ort.Value, 0, len(e.cfg.InputNames))
	defer func() {
		for _, v := range inputs {
			_ = v.Destroy()
		}
	}()
	for _, name := range e.cfg.InputNames {
		var data []int64
		switch strings.ToLower(name) {
		case "input_ids":
			data = ids
		case "attention_mask":
			data = mask
		case "token_type_ids":
			data = make([]int64, len(ids))
		default:
			return nil, fmt.Errorf("unsupported model input %q", name)
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("create %s tensor: %w", name, err)
		}
		inputs = append(inputs, t)
	}

	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(e.cfg.NumLabels)))
	if err != nil {
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	defer out.Destroy()

	if err := e.session.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}
	logits := make([]float32, e.cfg.NumLabels)
	copy(logits, out.GetData())
	return logits, nil
}

// Truncate caps a token sequence at maxLen while keeping the closing
// special token, the same way HF tokenizers truncate with special tokens.
func Truncate(ids, mask []int, maxLen int) ([]int, []int) {
	if maxLen <= 0 || len(ids) <= maxLen {
		return ids, mask
	}
	outIDs := make([]int, maxLen)
	copy(outIDs, ids[:maxLen-1])
	outIDs[maxLen-1] = ids[len(ids)-1]

	outMask := make([]int, maxLen)
	if len(mask) == len(ids) {
		copy(outMask, mask[:maxLen-1])
		outMask[maxLen-1] = mask[len(mask)-1]
	} else {
		for i := range outMask {
			outMask[i] = 1
		}
	}
	return outIDs, outMask
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}
