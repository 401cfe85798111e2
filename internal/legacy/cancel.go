package legacy

import "sync"

// CancelStrategy decides when a shown picker counts as dismissed on hosts
// whose inputs cannot tell. Arm is called right before the picker is shown;
// abort may be called at most usefully once. The returned disarm is called
// when the operation settles.
type CancelStrategy interface {
	Arm(host Host, abort func()) (disarm func())
}

// InteractionStrategy treats any pointer movement, pointer press or key press
// on the page while the picker is open as abandonment. It is a heuristic and
// racy: an interaction that reaches the page before the selection does aborts
// a pick the user actually completed. Hosts with a native cancel event skip it.
type InteractionStrategy struct{}

var interactionEvents = []string{EventPointerMove, EventPointerDown, EventKeyDown}

func (InteractionStrategy) Arm(host Host, abort func()) func() {
	if host.SupportsCancelEvent() {
		return func() {}
	}

	var (
		once    sync.Once
		mu      sync.Mutex
		removes []func()
	)
	removeAll := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, remove := range removes {
			remove()
		}
		removes = nil
	}
	fire := func() {
		once.Do(func() {
			removeAll()
			abort()
		})
	}

	mu.Lock()
	for _, event := range interactionEvents {
		removes = append(removes, host.AddEventListener(event, fire))
	}
	mu.Unlock()
	return removeAll
}

// HookStrategy hands abandonment detection to the caller. The hook receives
// the abort function and returns the cleanup to run once the operation
// settles. It is armed even on hosts with a native cancel event.
type HookStrategy func(abort func()) (cleanup func())

func (h HookStrategy) Arm(_ Host, abort func()) func() {
	cleanup := h(abort)
	if cleanup == nil {
		return func() {}
	}
	return cleanup
}
