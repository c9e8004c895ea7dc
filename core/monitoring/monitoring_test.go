package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordMonitor struct {
	errs   []error
	panics []any
	tags   []map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recordMonitor) CapturePanic(v any, tags map[string]string) {
	r.panics = append(r.panics, v)
	r.tags = append(r.tags, tags)
}

func (r *recordMonitor) Flush(time.Duration) {}

func TestGlobalMonitor(t *testing.T) {
	prev := Current()
	defer Init(prev)

	rec := &recordMonitor{}
	Init(rec)
	Init(nil)
	assert.Same(t, rec, Current())

	boom := errors.New("boom")
	CaptureException(boom, map[string]string{"run_id": "r1"})
	CapturePanic("oops", nil)
	Flush(time.Second)

	assert.Equal(t, []error{boom}, rec.errs)
	assert.Equal(t, []any{"oops"}, rec.panics)
	assert.Equal(t, "r1", rec.tags[0]["run_id"])
}

func TestPanicError(t *testing.T) {
	base := errors.New("index out of range")
	err := PanicError(base)
	assert.ErrorIs(t, err, base)
	assert.EqualError(t, PanicError(42), "panic: 42")
}
