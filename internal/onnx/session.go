package onnx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/yalue/onnxruntime_go"
)

// ErrSessionClosed is returned by Run after Close.
var ErrSessionClosed = errors.New("onnx session is closed")

// SessionConfig describes one model and its named outputs. An empty
// InputName selects the model's first input.
type SessionConfig struct {
	ModelPath   string
	LibraryPath string
	InputName   string
	OutputNames []string
	NumThreads  int
	GPU         GPUConfig
}

// Validate checks that the model exists and names are set.
func (c SessionConfig) Validate() error {
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if _, err := os.Stat(c.ModelPath); err != nil {
		return fmt.Errorf("model file not found: %w", err)
	}
	if len(c.OutputNames) == 0 {
		return errors.New("at least one output name is required")
	}
	if c.NumThreads < 0 {
		return fmt.Errorf("num threads must be >= 0, got %d", c.NumThreads)
	}
	return c.GPU.Validate()
}

// Session runs a float32 model with one input and any number of outputs.
// Run may be called concurrently.
type Session struct {
	cfg     SessionConfig
	mu      sync.RWMutex
	session *onnxruntime_go.DynamicAdvancedSession
}

// NewSession loads the runtime if needed and opens the model.
func NewSession(cfg SessionConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := InitRuntime(cfg.LibraryPath, cfg.GPU.UseGPU); err != nil {
		return nil, err
	}
	if cfg.InputName == "" {
		inputs, _, err := onnxruntime_go.GetInputOutputInfo(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read model inputs: %w", err)
		}
		if len(inputs) == 0 {
			return nil, errors.New("model has no inputs")
		}
		cfg.InputName = inputs[0].Name
	}

	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := opts.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := configureGPU(opts, cfg.GPU); err != nil {
		return nil, err
	}
	if cfg.NumThreads > 0 {
		if err := opts.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	s, err := onnxruntime_go.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, cfg.OutputNames, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	slog.Info("onnx session ready", "model", cfg.ModelPath, "input", cfg.InputName,
		"outputs", len(cfg.OutputNames), "gpu", cfg.GPU.UseGPU)
	return &Session{cfg: cfg, session: s}, nil
}

// OutputNames returns the configured outputs in Run order.
func (s *Session) OutputNames() []string {
	return append([]string(nil), s.cfg.OutputNames...)
}

// Run executes the model on input and returns one tensor per output name.
// Returned tensors own their data.
func (s *Session) Run(input Tensor) ([]Tensor, error) {
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid input tensor: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return nil, ErrSessionClosed
	}

	in, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(input.Shape...), input.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		if err := in.Destroy(); err != nil {
			slog.Warn("failed to destroy input tensor", "error", err)
		}
	}()

	outputs := make([]onnxruntime_go.Value, len(s.cfg.OutputNames))
	start := time.Now()
	if err := s.session.Run([]onnxruntime_go.Value{in}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o == nil {
				continue
			}
			if err := o.Destroy(); err != nil {
				slog.Warn("failed to destroy output tensor", "error", err)
			}
		}
	}()
	slog.Debug("onnx run", "model", s.cfg.ModelPath, "shape", input.Shape, "elapsed", time.Since(start))

	res := make([]Tensor, len(outputs))
	for i, o := range outputs {
		ft, ok := o.(*onnxruntime_go.Tensor[float32])
		if !ok {
			return nil, fmt.Errorf("output %q: expected float32 tensor, got %T", s.cfg.OutputNames[i], o)
		}
		shape := ft.GetShape()
		res[i] = Tensor{
			Data:  append([]float32(nil), ft.GetData()...),
			Shape: append([]int64(nil), shape...),
		}
	}
	return res, nil
}

// Close releases the native session. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	return err
}
