package recognition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrRecognition matches every error returned from a failed OCR pass.
var ErrRecognition = errors.New("recognition failed")

// ErrUnknownRecognizer is returned when a source name is not registered.
var ErrUnknownRecognizer = errors.New("unknown recognizer")

// Recognizer is an OCR source.
type Recognizer interface {
	// Name identifies the source in settings and logs.
	Name() string

	// Recognize returns the regions detected in the image at imagePath.
	Recognize(ctx context.Context, imagePath string) (*Result, error)
}

// Error reports a failed OCR pass.
type Error struct {
	Engine string
	Image  string
	Cause  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("recognition failed (%s, %s): %v", e.Engine, e.Image, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is makes errors.Is(err, ErrRecognition) true for every *Error.
func (e *Error) Is(target error) bool { return target == ErrRecognition }

// Run calls r and wraps any failure in *Error. A nil result without an
// error is treated as an empty pass.
func Run(ctx context.Context, r Recognizer, imagePath string) (*Result, error) {
	res, err := r.Recognize(ctx, imagePath)
	if err != nil {
		var re *Error
		if errors.As(err, &re) {
			return nil, err
		}
		return nil, &Error{Engine: r.Name(), Image: imagePath, Cause: err}
	}
	if res == nil {
		res = NewResult(imagePath, r.Name(), nil)
	}
	return res, nil
}

// Registry holds the available recognizers by name.
type Registry struct {
	mu          sync.RWMutex
	recognizers map[string]Recognizer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{recognizers: make(map[string]Recognizer)}
}

// Register adds or replaces a recognizer under its own name.
func (r *Registry) Register(rec Recognizer) {
	r.RegisterAs(rec.Name(), rec)
}

// RegisterAs adds or replaces a recognizer under a configured alias, so
// two providers of the same engine can coexist.
func (r *Registry) RegisterAs(name string, rec Recognizer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recognizers[name] = rec
}

// Get returns the recognizer registered under name.
func (r *Registry) Get(name string) (Recognizer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.recognizers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRecognizer, name)
	}
	return rec, nil
}

// Select returns the first registered recognizer among names, skipping
// empty entries. It is used to honor the user's chosen source with the
// configured default as fallback.
func (r *Registry) Select(names ...string) (Recognizer, error) {
	var tried []string
	for _, n := range names {
		if n == "" {
			continue
		}
		if rec, err := r.Get(n); err == nil {
			return rec, nil
		}
		tried = append(tried, n)
	}
	if len(tried) == 0 {
		return nil, fmt.Errorf("%w: no source selected", ErrUnknownRecognizer)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnknownRecognizer, tried)
}

// Names lists registered recognizers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.recognizers))
	for n := range r.recognizers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
