// This file is not generated: there is no report.qtpl template. It is
// hand-authored in the same style `qtc` would produce, since the
// teacher's go.mod carries valyala/quicktemplate as a dependency it never
// exercises (cmd/codegen generates Go signal boilerplate, not HTML).
// This gives that dependency a concrete home: the HTML form of spec.md
// §6's read-only visualization export.

package viz

import (
	"fmt"

	qtio422016 "io"

	qt422016 "github.com/valyala/quicktemplate"
)

// StreamRenderHTML writes the HTML visualization export for snap directly
// to qw422016, the streaming entry point qtc-generated templates expose.
func StreamRenderHTML(qw422016 *qt422016.Writer, snap NodeSnapshot) {
	qw422016.N().S(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>fibre tree</title>
<style>
body { font-family: monospace; }
.node { margin-left: 1.25em; border-left: 1px solid #ccc; padding-left: 0.5em; }
.kp { color: #555; }
.status-Active { color: #2a7; }
.status-Disposed { color: #a22; }
.preds { color: #888; font-size: 0.9em; }
</style>
</head>
<body>
<h1>fibre tree</h1>
`)
	streamRenderNode(qw422016, snap)
	qw422016.N().S(`</body>
</html>
`)
}

func streamRenderNode(qw422016 *qt422016.Writer, n NodeSnapshot) {
	qw422016.N().S(`<div class="node">
<span class="kp">`)
	qw422016.E().S(n.KeyPath)
	qw422016.N().S(`</span>
<b>`)
	qw422016.E().S(n.DescriptorType)
	qw422016.N().S(`</b>
<span class="status-`)
	qw422016.E().S(n.Status)
	qw422016.N().S(`">`)
	qw422016.E().S(n.Status)
	qw422016.N().S(`</span>
rev=`)
	qw422016.N().D(int(n.Revision))
	if n.HasResult {
		qw422016.N().S(` result=`)
		qw422016.E().S(fmt.Sprintf("%v", n.Result))
	}
	if len(n.Predecessors) > 0 {
		qw422016.N().S(`<div class="preds">preds: `)
		for i, p := range n.Predecessors {
			if i > 0 {
				qw422016.N().S(`, `)
			}
			qw422016.E().S(p)
		}
		qw422016.N().S(`</div>
`)
	}
	for _, c := range n.Children {
		streamRenderNode(qw422016, c)
	}
	qw422016.N().S(`</div>
`)
}

// WriteRenderHTML writes the HTML export to an io.Writer, acquiring and
// releasing a pooled *quicktemplate.Writer the way every qtc-generated
// WriteX function does.
func WriteRenderHTML(qq422016 qtio422016.Writer, snap NodeSnapshot) {
	qw422016 := qt422016.AcquireWriter(qq422016)
	StreamRenderHTML(qw422016, snap)
	qt422016.ReleaseWriter(qw422016)
}

// RenderHTML renders the HTML export to a string — the read-only
// visualization export of spec.md §6 in the form an external renderer
// can embed directly in a page.
func RenderHTML(snap NodeSnapshot) string {
	qb422016 := qt422016.AcquireByteBuffer()
	WriteRenderHTML(qb422016, snap)
	qs422016 := string(qb422016.B)
	qt422016.ReleaseByteBuffer(qb422016)
	return qs422016
}
