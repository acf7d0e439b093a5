package core

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// NoticeKind is the severity of a notification.
type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

// Notices receives user-visible feedback.
type Notices interface {
	Notify(kind NoticeKind, text string)
}

// NoticeTimings controls the toast lifecycle.
type NoticeTimings struct {
	ShowDelay time.Duration
	Visible   time.Duration
	Fade      time.Duration
}

// DefaultNoticeTimings mirror the web console transitions.
func DefaultNoticeTimings() NoticeTimings {
	return NoticeTimings{
		ShowDelay: 20 * time.Millisecond,
		Visible:   3200 * time.Millisecond,
		Fade:      320 * time.Millisecond,
	}
}

// Toast classes.
const (
	ToastClass        = "toast"
	ToastVisibleClass = "toast--visible"
	ToastContainerCls = "toast-container"
)

// Notifier renders notifications as toasts inside a container it creates on
// first use. Each toast is shown, hidden and removed by clock timers whose
// callbacks run through post.
type Notifier struct {
	doc     Document
	clock   clockwork.Clock
	post    func(func())
	timings NoticeTimings

	mu        sync.Mutex
	container Element
	pending   map[Element][]clockwork.Timer
	closed    bool
}

// NewNotifier returns a notifier writing into doc. A nil clock uses the real
// clock; a nil post runs callbacks on the timer goroutine.
func NewNotifier(doc Document, clock clockwork.Clock, post func(func()), timings NoticeTimings) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if post == nil {
		post = func(fn func()) { fn() }
	}
	defaults := DefaultNoticeTimings()
	if timings.ShowDelay <= 0 {
		timings.ShowDelay = defaults.ShowDelay
	}
	if timings.Visible <= 0 {
		timings.Visible = defaults.Visible
	}
	if timings.Fade <= 0 {
		timings.Fade = defaults.Fade
	}
	return &Notifier{
		doc:     doc,
		clock:   clock,
		post:    post,
		timings: timings,
		pending: make(map[Element][]clockwork.Timer),
	}
}

// Notify appends a toast and schedules its dismissal.
func (n *Notifier) Notify(kind NoticeKind, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.doc == nil {
		return
	}
	container := n.ensureContainerLocked()
	if container == nil {
		return
	}
	toast := n.doc.CreateElement("div")
	toast.AddClass(ToastClass, ToastClass+"--"+string(kind))
	toast.SetAttr("role", "status")
	toast.SetText(text)
	container.AppendChild(toast)

	show := n.timings.ShowDelay
	hide := show + n.timings.Visible
	remove := hide + n.timings.Fade
	n.pending[toast] = []clockwork.Timer{
		n.schedule(show, func() { toast.AddClass(ToastVisibleClass) }),
		n.schedule(hide, func() { toast.RemoveClass(ToastVisibleClass) }),
		n.schedule(remove, func() { n.dismiss(toast) }),
	}
}

// Container returns the toast container, or nil before the first notification.
func (n *Notifier) Container() Element {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.container
}

// Close stops pending timers. Toasts already shown stay in the document.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	for toast, timers := range n.pending {
		for _, timer := range timers {
			timer.Stop()
		}
		delete(n.pending, toast)
	}
}

func (n *Notifier) schedule(d time.Duration, fn func()) clockwork.Timer {
	return n.clock.AfterFunc(d, func() {
		n.post(func() {
			n.mu.Lock()
			closed := n.closed
			n.mu.Unlock()
			if !closed {
				fn()
			}
		})
	})
}

func (n *Notifier) dismiss(toast Element) {
	toast.Remove()
	n.mu.Lock()
	delete(n.pending, toast)
	n.mu.Unlock()
}

func (n *Notifier) ensureContainerLocked() Element {
	if n.container != nil {
		return n.container
	}
	if existing := n.doc.ByID(ToastContainerID); existing != nil {
		n.container = existing
		return existing
	}
	root := n.doc.Root()
	if root == nil {
		return nil
	}
	container := n.doc.CreateElement("div")
	container.SetAttr("id", ToastContainerID)
	container.AddClass(ToastContainerCls)
	root.AppendChild(container)
	n.container = container
	return container
}
