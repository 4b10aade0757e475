package fibre

// EventKind identifies the lifecycle moment an Observer is notified of
// (spec.md §4.6).
type EventKind int

const (
	EventMount EventKind = iota
	EventCommit
	EventUnmount
)

func (k EventKind) String() string {
	switch k {
	case EventMount:
		return "Mount"
	case EventCommit:
		return "Commit"
	case EventUnmount:
		return "Unmount"
	default:
		return "Unknown"
	}
}

// Event carries everything the external visualizer needs: it has no
// semantic load on the runtime itself (spec.md §4.6).
type Event struct {
	Kind           EventKind
	KeyPath        KeyPath
	DescriptorType string
	Result         any
	Revision       uint64
}

// Observer receives mount/commit/unmount notifications. Commit events are
// only emitted when the committed result actually changed.
type Observer interface {
	OnFibreEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnFibreEvent(e Event) { f(e) }

func (rt *Runtime) notify(kind EventKind, f *Fibre) {
	if rt.observer == nil {
		return
	}
	result, _ := f.Result()
	rt.observer.OnFibreEvent(Event{
		Kind:           kind,
		KeyPath:        f.keyPath,
		DescriptorType: f.DescriptorTypeID(),
		Result:         result,
		Revision:       f.revision,
	})
}
