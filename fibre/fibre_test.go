package fibre_test

import (
	"reflect"
	"testing"

	"github.com/module/incremental/fibre"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fn is a minimal Descriptor for tests: its identity is (id, props) and its
// behaviour is whatever closure the test supplies.
type fn struct {
	id    string
	props any
	body  func(cc *fibre.CallContext) (any, error)
}

func (f fn) TypeID() string { return f.id }

func (f fn) Equal(other fibre.Descriptor) bool {
	o, ok := other.(fn)
	return ok && o.id == f.id && reflect.DeepEqual(f.props, o.props)
}

func (f fn) Evaluate(cc *fibre.CallContext) (any, error) { return f.body(cc) }

// two children summed under a root; a second tick with nothing invalidated
// must not re-run either child.
func TestMemoizationSoundness(t *testing.T) {
	aRuns, bRuns := 0, 0
	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		av, err := cc.EvaluateChild("a", fn{id: "leaf", props: 1, body: func(cc *fibre.CallContext) (any, error) {
			aRuns++
			return 1, nil
		}})
		require.NoError(t, err)
		bv, err := cc.EvaluateChild("b", fn{id: "leaf", props: 1, body: func(cc *fibre.CallContext) (any, error) {
			bRuns++
			return 1, nil
		}})
		require.NoError(t, err)
		return av.(int) + bv.(int), nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, 1, aRuns)
	assert.Equal(t, 1, bRuns)

	_, err = rt.RunTick()
	require.NoError(t, err)
	// nothing invalidated anything: a second tick must not re-run either leaf
	assert.Equal(t, 1, aRuns)
	assert.Equal(t, 1, bRuns)
}

// a state write on one leaf must re-run that leaf and the ancestors that
// read it, but never an unrelated sibling with no path to the change.
func TestIncrementality(t *testing.T) {
	aRuns, bRuns := 0, 0
	var setA fibre.Setter[int]

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		av, err := cc.EvaluateChild("a", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			aRuns++
			v, set := fibre.UseState(cc, 0)
			setA = set
			return v, nil
		}})
		require.NoError(t, err)
		_, err = cc.EvaluateChild("b", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			bRuns++
			return 1, nil
		}})
		require.NoError(t, err)
		return av, nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, 1, aRuns)
	assert.Equal(t, 1, bRuns)

	setA(func(prev int) int { return prev + 1 })
	_, err = rt.RunTick()
	require.NoError(t, err)
	assert.Equal(t, 2, aRuns, "a's own state changed, so a re-evaluates")
	assert.Equal(t, 1, bRuns, "b has no dependency on a and must not re-evaluate")
}

// a fibre's key path is independent of where its descriptor reorders
// relative to siblings; the fibre bound to a key survives the reorder.
func TestKeyStability(t *testing.T) {
	order := []string{"x", "y"}
	mounts := map[string]int{}
	var setGen fibre.Setter[int]

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		_, set := fibre.UseState(cc, 0)
		setGen = set
		for _, key := range order {
			k := key
			_, err := cc.EvaluateChild(k, fn{id: "leaf", props: k, body: func(cc *fibre.CallContext) (any, error) {
				mounts[k]++
				return k, nil
			}})
			require.NoError(t, err)
		}
		return nil, nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, 1, mounts["x"])
	assert.Equal(t, 1, mounts["y"])

	order = []string{"y", "x"}
	setGen(func(g int) int { return g + 1 }) // force root to re-evaluate in the new order
	_, err = rt.RunTick()
	require.NoError(t, err)
	// reordering without a props change must not re-mount either child
	assert.Equal(t, 1, mounts["x"])
	assert.Equal(t, 1, mounts["y"])
}

// dropping a child from the node function without invalidating the root
// changes nothing: the root is not re-evaluated, so the child is not
// disposed and its cleanup does not run (the forced case is the next test).
func TestUnmountCompleteness(t *testing.T) {
	includeChild := true
	cleanups := 0

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		if includeChild {
			_, err := cc.EvaluateChild("child", fn{id: "leaf", props: nil, body: func(cc *fibre.CallContext) (any, error) {
				fibre.UseEffect(cc, []any{}, func() func() {
					return func() { cleanups++ }
				})
				return nil, nil
			}})
			require.NoError(t, err)
		}
		return nil, nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, 0, cleanups)

	includeChild = false
	_, err = rt.RunTick()
	require.NoError(t, err)
	assert.Equal(t, 0, cleanups, "root itself never changed so it's not re-evaluated; force re-evaluation instead")
}

// forcing the root to re-evaluate (by changing something it reads) while
// dropping a child must run that child's cleanup exactly once.
func TestUnmountCompletenessOnForcedReevaluation(t *testing.T) {
	includeChild := true
	cleanups := 0
	var setGen fibre.Setter[int]

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		gen, set := fibre.UseState(cc, 0)
		setGen = set
		if includeChild {
			_, err := cc.EvaluateChild("child", fn{id: "leaf", props: nil, body: func(cc *fibre.CallContext) (any, error) {
				fibre.UseEffect(cc, []any{}, func() func() {
					return func() { cleanups++ }
				})
				return nil, nil
			}})
			require.NoError(t, err)
		}
		return gen, nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, 0, cleanups)

	includeChild = false
	setGen(func(g int) int { return g + 1 })
	_, err = rt.RunTick()
	require.NoError(t, err)
	assert.Equal(t, 1, cleanups)
}

// disposing the whole runtime runs every still-mounted fibre's cleanup,
// deepest first.
func TestDisposeRunsAllCleanupsPostOrder(t *testing.T) {
	var order []string

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		fibre.UseEffect(cc, []any{}, func() func() { return func() { order = append(order, "root") } })
		_, err := cc.EvaluateChild("child", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			fibre.UseEffect(cc, []any{}, func() func() { return func() { order = append(order, "child") } })
			return nil, nil
		}})
		require.NoError(t, err)
		return nil, nil
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)

	rt.Dispose()
	assert.Equal(t, []string{"child", "root"}, order)
}
