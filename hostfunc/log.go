package hostfunc

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tetratelabs/wazero/api"
)

// I32Sink binds module.name with signature (i32) -> () to fn.
func I32Sink(module, name string, fn func(ctx context.Context, v int32) error) Binding {
	return Binding{
		Module: module,
		Name:   name,
		Params: []api.ValueType{api.ValueTypeI32},
		Fn: func(ctx context.Context, stack []uint64) error {
			return fn(ctx, api.DecodeI32(stack[0]))
		},
	}
}

// Log returns the reference log binding: each value is written to w on its
// own line.
func Log(module, name string, w io.Writer) Binding {
	var mu sync.Mutex
	return I32Sink(module, name, func(_ context.Context, v int32) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintln(w, v)
		return err
	})
}

// Recorder collects logged values in call order.
type Recorder struct {
	mu     sync.Mutex
	values []int32
}

// Binding returns a (i32) -> () binding that appends to the recorder.
func (r *Recorder) Binding(module, name string) Binding {
	return I32Sink(module, name, func(_ context.Context, v int32) error {
		r.mu.Lock()
		r.values = append(r.values, v)
		r.mu.Unlock()
		return nil
	})
}

// Values returns a copy of the recorded values.
func (r *Recorder) Values() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int32(nil), r.values...)
}

// Reset drops recorded values.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.values = nil
	r.mu.Unlock()
}
