package fibre

import (
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// CaptureKey identifies a bottom-up aggregation: descendants contribute
// values, and a declaring ancestor reduces them (spec.md §4.4, "Capture
// (bottom-up)").
type CaptureKey[T any] struct {
	id   uint64
	name string
}

// NewCaptureKey creates a capture key identified by name.
func NewCaptureKey[T any](name string) *CaptureKey[T] {
	return &CaptureKey[T]{id: xxhash.Sum64String("capture:" + name), name: name}
}

// Reducer folds the ordered, pre-order contributions collected during one
// tick into the aggregator's value.
type Reducer[T any] func(contributions []T) T

// CaptureHandle is returned by ProvideCapture. A node function registers
// the capture (establishing it for descendants), evaluates its subtree,
// then calls Collect to read the reduced value — the two-phase pattern
// described in spec.md §4.4.
type CaptureHandle[T any] struct {
	binding *captureBinding
	reducer Reducer[T]
}

// Collect runs the reducer over this tick's ordered contributions. Call it
// only after the subtree that might contribute has been evaluated.
func (h *CaptureHandle[T]) Collect() T {
	vals := make([]T, len(h.binding.order))
	for i, fid := range h.binding.order {
		vals[i], _ = h.binding.values[fid].(T)
	}
	return h.reducer(vals)
}

// ProvideCapture declares a capture key and a reducer on the current
// fibre. It does not reset the contribution list: contributions recorded on
// earlier ticks stay in place until their contributor re-contributes or
// unmounts.
func ProvideCapture[T any](cc *CallContext, key *CaptureKey[T], reducer Reducer[T]) *CaptureHandle[T] {
	binding := cc.fibre.beginCapture(key.id)
	return &CaptureHandle[T]{binding: binding, reducer: reducer}
}

// UseCapture contributes a value to the nearest ancestor aggregator
// declared for key. The aggregator's fibre becomes dependent on the
// contributing fibre: any change to the contribution invalidates the
// aggregator, even though the contributing fibre's own committed result
// may stay the same (spec.md §4.4). At most one contribution per fibre per
// key per evaluation is allowed; a second call fails with DuplicateCapture
// (spec.md §9, Open question) — cc.capturesSeen already enforces this
// per-evaluation, so a fibre re-contributing on a later tick is never
// mistaken for a duplicate.
func UseCapture[T any](cc *CallContext, key *CaptureKey[T], value T) error {
	slot, err := cc.fibre.nextSlot(hookCapture)
	if err != nil {
		return err
	}
	if slot.capture == nil {
		slot.capture = &captureSlotData{}
	}
	if slot.capture.hasKey && slot.capture.lastKeyID != key.id {
		return newError(HookOrderViolation, cc.fibre.keyPath, "use_capture(%q) called at a slot that contributed to a different capture key last time", key.name)
	}
	if _, dup := cc.capturesSeen[key.id]; dup {
		return newError(DuplicateCapture, cc.fibre.keyPath, "duplicate use_capture(%q) in one tick", key.name)
	}
	cc.capturesSeen[key.id] = struct{}{}
	slot.capture.lastKeyID = key.id
	slot.capture.hasKey = true

	aggregator, binding, ok := cc.fibre.findCaptureProvider(key.id)
	if !ok {
		return newError(MissingContext, cc.fibre.keyPath, "no capture aggregator bound for %q", key.name)
	}

	prev, hadPrev := binding.values[cc.fibre.id]
	changed := !hadPrev || !reflect.DeepEqual(prev, value)
	if !hadPrev {
		binding.order = append(binding.order, cc.fibre.id)
	}
	binding.values[cc.fibre.id] = value

	if cc.fibre.contributesTo == nil {
		cc.fibre.contributesTo = map[uint64]*captureBinding{}
	}
	cc.fibre.contributesTo[key.id] = binding

	aggregator.addPredecessor(cc.fibre)
	if changed && !aggregator.evaluating {
		cc.runtime.invalidate(aggregator, dirtyCapture)
	}
	return nil
}
