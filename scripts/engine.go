package scripts

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/dop251/goja"
)

var ErrInvalidExhibitMap = errors.New("invalid exhibit map")

// Engine runs scripts in a goja runtime that is interrupted when the
// context is done.
type Engine struct {
	vm *goja.Runtime
}

func NewEngine() *Engine {
	return &Engine{vm: goja.New()}
}

func (e *Engine) Execute(ctx context.Context, src string) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	done := make(chan struct{})
	defer close(done)
	defer e.vm.ClearInterrupt()

	go func() {
		select {
		case <-ctx.Done():
			e.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	val, err := e.vm.RunString(src)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			if cause, ok := interrupted.Value().(error); ok {
				return nil, cause
			}
			return nil, context.Canceled
		}
		return nil, err
	}
	return val, nil
}

// Validate runs src and checks that it declares an exhibitMap object with
// entries keys. A negative entries skips the count check.
func Validate(ctx context.Context, src string, entries int) error {
	e := NewEngine()
	if _, err := e.Execute(ctx, src); err != nil {
		return errors.Wrap(err, "run script")
	}
	val, err := e.Execute(ctx, `typeof exhibitMap === "object" && exhibitMap !== null ? Object.keys(exhibitMap).length : -1`)
	if err != nil {
		return errors.Wrap(err, "inspect exhibitMap")
	}
	n := val.ToInteger()
	if n < 0 {
		return errors.Wrap(ErrInvalidExhibitMap, "exhibitMap is not an object")
	}
	if entries >= 0 && int(n) != entries {
		return errors.Wrapf(ErrInvalidExhibitMap, "exhibitMap has %d entries, expected %d", n, entries)
	}
	return nil
}
