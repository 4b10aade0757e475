package fibre_test

import (
	"testing"

	"github.com/module/incremental/fibre"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var greetingKey = fibre.NewContextKey[string]("greeting")

// a descendant reads the nearest bound value for a context key, regardless
// of how many levels of tree separate it from the provider.
func TestContextResolvesNearestProvider(t *testing.T) {
	var got string

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		require.NoError(t, fibre.ProvideContext(cc, greetingKey, "hello"))
		_, err := cc.EvaluateChild("mid", fn{id: "mid", body: func(cc *fibre.CallContext) (any, error) {
			return cc.EvaluateChild("leaf", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
				v, err := fibre.UseContext(cc, greetingKey)
				got = v
				return v, err
			}})
		}})
		return nil, err
	}}

	_, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

// reading a context key with no bound ancestor fails with MissingContext.
func TestContextMissingProvider(t *testing.T) {
	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		return fibre.UseContext(cc, greetingKey)
	}}

	_, err := fibre.NewRuntime(root)
	require.Error(t, err)
	var fe *fibre.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fibre.MissingContext, fe.Kind)
}

// changing a provided context value invalidates every descendant reader,
// even though the provider's own committed result may stay unchanged.
func TestContextChangeInvalidatesReaders(t *testing.T) {
	value := "v1"
	readerRuns := 0
	var setGen fibre.Setter[int]

	root := fn{id: "root", body: func(cc *fibre.CallContext) (any, error) {
		_, set := fibre.UseState(cc, 0)
		setGen = set
		require.NoError(t, fibre.ProvideContext(cc, greetingKey, value))
		_, err := cc.EvaluateChild("leaf", fn{id: "leaf", body: func(cc *fibre.CallContext) (any, error) {
			readerRuns++
			v, err := fibre.UseContext(cc, greetingKey)
			return v, err
		}})
		return "root unrelated result", err
	}}

	rt, err := fibre.NewRuntime(root)
	require.NoError(t, err)
	assert.Equal(t, 1, readerRuns)

	value = "v2"
	setGen(func(prev int) int { return prev + 1 }) // force root to re-evaluate and re-provide
	_, err = rt.RunTick()
	require.NoError(t, err)
	assert.Equal(t, 2, readerRuns, "the provided value changed, so the reader must re-run")
}
