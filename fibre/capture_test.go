package fibre_test

import (
	"testing"

	"github.com/module/incremental/fibre"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tagsKey = fibre.NewCaptureKey[string]("tags")

func sum(contributions []int) int {
	total := 0
	for _, c := range contributions {
		total += c
	}
	return total
}

// contributions from descendants are reduced in pre-order.
func TestCaptureReducesInPreOrder(t *testing.T) {
	var collected []string

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		handle := fibre.ProvideCapture(cc, tagsKey, func(contributions []string) string {
			joined := ""
			for _, c := range contributions {
				joined += c
			}
			return joined
		})
		_, err := cc.EvaluateChild("a", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			return nil, fibre.UseCapture(cc, tagsKey, "a")
		}})
		require.NoError(t, err)
		_, err = cc.EvaluateChild("b", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			return nil, fibre.UseCapture(cc, tagsKey, "b")
		}})
		require.NoError(t, err)
		result := handle.Collect()
		collected = append(collected, result)
		return result, nil
	}}

	_, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"ab"}, collected)
}

// contributing twice from the same fibre in one tick is a programmer error.
func TestCaptureDuplicateContributionFails(t *testing.T) {
	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		fibre.ProvideCapture(cc, tagsKey, func(c []string) string { return "" })
		_, err := cc.EvaluateChild("a", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			if err := fibre.UseCapture(cc, tagsKey, "a"); err != nil {
				return nil, err
			}
			return nil, fibre.UseCapture(cc, tagsKey, "a again")
		}})
		return nil, err
	}}

	_, err := fibre.NewRuntime(root)
	require.Error(t, err)
	var fe *fibre.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fibre.DuplicateCapture, fe.Kind)
}

// contributing with no aggregator bound above fails with MissingContext.
func TestCaptureMissingAggregator(t *testing.T) {
	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		return nil, fibre.UseCapture(cc, tagsKey, "a")
	}}

	_, err := fibre.NewRuntime(root)
	require.Error(t, err)
	var fe *fibre.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fibre.MissingContext, fe.Kind)
}

// a contributor's value change invalidates the aggregator, since the
// aggregator's own result depends on everything it collected.
func TestCaptureChangeInvalidatesAggregator(t *testing.T) {
	aggregations := 0
	var setVal fibre.Setter[int]

	intKey := fibre.NewCaptureKey[int]("scores")

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		handle := fibre.ProvideCapture(cc, intKey, sum)
		_, err := cc.EvaluateChild("leaf", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			v, set := fibre.UseState(cc, 1)
			setVal = set
			return nil, fibre.UseCapture(cc, intKey, v)
		}})
		require.NoError(t, err)
		aggregations++
		return handle.Collect(), nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, 1, aggregations)

	setVal(func(prev int) int { return prev + 1 })
	_, err = rt.RunTick()
	require.NoError(t, err)
	assert.Equal(t, 2, aggregations, "the contributed value changed, so the aggregator must recompute")
}

// when a contributing fibre unmounts, its last contributed value must drop
// out of the aggregator's reduction, not linger forever.
func TestCaptureContributorUnmountDropsItsValue(t *testing.T) {
	intKey := fibre.NewCaptureKey[int]("scores")
	includeB := true
	var setIncludeB fibre.Setter[bool]
	var collected []int

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		handle := fibre.ProvideCapture(cc, intKey, sum)
		include, set := fibre.UseState(cc, includeB)
		setIncludeB = set

		_, err := cc.EvaluateChild("a", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			return nil, fibre.UseCapture(cc, intKey, 1)
		}})
		require.NoError(t, err)

		if include {
			_, err = cc.EvaluateChild("b", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
				return nil, fibre.UseCapture(cc, intKey, 10)
			}})
			require.NoError(t, err)
		}

		result := handle.Collect()
		collected = append(collected, result)
		return result, nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, []int{11}, collected)

	setIncludeB(func(bool) bool { return false })
	_, err = rt.RunTick()
	require.NoError(t, err)
	// the unmount is only detected after root's body has already run once
	// more with b's stale contribution still in the binding, so the tick
	// settles across an extra internal pass; what must hold is the value it
	// settles on, not the number of times the body ran to get there.
	assert.Equal(t, 1, collected[len(collected)-1], "b unmounted, so its contribution must no longer be summed")
	result, ok := rt.Root().Result()
	require.True(t, ok)
	assert.Equal(t, 1, result)
}
