package legacy

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/fsaccess/internal/blob"
	"github.com/stackvity/fsaccess/internal/fileref"
	"github.com/stackvity/fsaccess/internal/fserrors"
	"github.com/stackvity/fsaccess/internal/payload"
	"github.com/stackvity/fsaccess/internal/request"
)

func TestAcceptString(t *testing.T) {
	tests := []struct {
		name    string
		filters []request.Filter
		want    string
	}{
		{"Empty", []request.Filter{{}}, ""},
		{"TypesThenExtensions", []request.Filter{
			{MIMETypes: []string{"image/png"}, Extensions: []string{".png"}},
			{MIMETypes: []string{"image/jpeg"}, Extensions: []string{".jpg", ".jpeg"}},
		}, "image/png,image/jpeg,.png,.jpg,.jpeg"},
		{"ExtensionsOnly", []request.Filter{{Extensions: []string{".md"}}}, ".md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AcceptString(tt.filters))
		})
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("SingleNeverReturnsMore", func(t *testing.T) {
		host := newFakeHost()
		host.script = func(_ *fakeHost, in *fakeInput) { in.choose(file("a.txt", "A"), file("b.txt", "B")) }

		files, err := New(host, nil, Config{}).Open(ctx, request.NormalizeOpen(false, request.Open{MIMETypes: []string{"text/plain"}}))
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "a.txt", files[0].Name)
		assert.Nil(t, files[0].Handle)

		in := host.lastInput()
		assert.Equal(t, "text/plain", in.accept)
		assert.False(t, in.multiple)
		assert.True(t, in.attached)
		assert.True(t, in.detached)
		assert.Equal(t, 0, host.listening(), "interaction listeners removed after settle")
	})

	t.Run("Multiple", func(t *testing.T) {
		host := newFakeHost()
		host.script = func(_ *fakeHost, in *fakeInput) { in.choose(file("a.txt", "A"), file("b.txt", "B")) }

		files, err := New(host, nil, Config{}).Open(ctx, request.NormalizeOpen(true))
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "B", string(files[1].Bytes()))
		assert.True(t, host.lastInput().multiple)
	})

	t.Run("EmptySelectionIsAborted", func(t *testing.T) {
		host := newFakeHost()
		host.script = func(_ *fakeHost, in *fakeInput) { in.choose() }

		_, err := New(host, nil, Config{}).Open(ctx, request.NormalizeOpen(false))
		assert.True(t, fserrors.IsAborted(err))
	})

	t.Run("ContextCancelled", func(t *testing.T) {
		host := newFakeHost()
		ctx, cancel := context.WithCancel(ctx)
		host.script = func(*fakeHost, *fakeInput) { cancel() }

		_, err := New(host, nil, Config{}).Open(ctx, request.NormalizeOpen(false))
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, host.lastInput().detached)
	})
}

// The interaction heuristic is best-effort: any page event while the picker
// is open is taken as dismissal, even one that races a real selection.
func TestInteractionStrategyIsBestEffort(t *testing.T) {
	for _, event := range []string{EventPointerMove, EventPointerDown, EventKeyDown} {
		t.Run(event, func(t *testing.T) {
			host := newFakeHost()
			host.script = func(h *fakeHost, in *fakeInput) {
				h.fire(event)
				in.choose(file("late.txt", "selected after the page saw input"))
			}

			_, err := New(host, nil, Config{}).Open(context.Background(), request.NormalizeOpen(false))
			assert.True(t, fserrors.IsAborted(err))
			assert.Equal(t, 0, host.listening())
		})
	}
}

func TestNativeCancelTakesPrecedence(t *testing.T) {
	host := newFakeHost()
	host.nativeCancel = true
	host.script = func(h *fakeHost, in *fakeInput) {
		h.fire(EventKeyDown)
		in.dismiss()
	}

	_, err := New(host, nil, Config{}).Open(context.Background(), request.NormalizeOpen(false))
	assert.True(t, fserrors.IsAborted(err))
	assert.Equal(t, 0, host.registrations, "no heuristic listeners on hosts with a cancel event")
}

func TestNativeCancelSelectionSurvivesPageEvents(t *testing.T) {
	host := newFakeHost()
	host.nativeCancel = true
	host.script = func(h *fakeHost, in *fakeInput) {
		h.fire(EventPointerMove)
		in.choose(file("kept.txt", "K"))
	}

	files, err := New(host, nil, Config{}).Open(context.Background(), request.NormalizeOpen(false))
	require.NoError(t, err)
	assert.Equal(t, "kept.txt", files[0].Name)
}

func TestHookStrategy(t *testing.T) {
	var (
		abortFn   func()
		cleanedUp bool
	)
	hook := HookStrategy(func(abort func()) func() {
		abortFn = abort
		return func() { cleanedUp = true }
	})

	host := newFakeHost()
	host.nativeCancel = true
	host.script = func(*fakeHost, *fakeInput) { abortFn() }

	_, err := New(host, nil, Config{Cancel: hook}).Open(context.Background(), request.NormalizeOpen(false))
	assert.True(t, fserrors.IsAborted(err))
	assert.True(t, cleanedUp)
	assert.Equal(t, 0, host.registrations)
}

func TestHostFailuresReachCaller(t *testing.T) {
	hostErr := errors.New("selection unreadable")

	t.Run("ClickRefused", func(t *testing.T) {
		host := newFakeHost()
		host.clickErr = hostErr

		_, err := New(host, nil, Config{}).Open(context.Background(), request.NormalizeOpen(false))
		assert.ErrorIs(t, err, hostErr)
		assert.False(t, fserrors.IsAborted(err))
		assert.True(t, host.lastInput().detached)
		assert.Equal(t, 0, host.listening())
	})

	t.Run("AfterClick", func(t *testing.T) {
		host := newFakeHost()
		host.script = func(_ *fakeHost, in *fakeInput) {
			in.fail(hostErr)
			in.choose(file("late.txt", "L"))
		}

		_, err := New(host, nil, Config{}).OpenDirectory(context.Background(), request.Directory{Recursive: true})
		assert.ErrorIs(t, err, hostErr)
	})
}

func TestHookStrategyNilCleanup(t *testing.T) {
	hook := HookStrategy(func(func()) func() { return nil })
	host := newFakeHost()
	host.script = func(_ *fakeHost, in *fakeInput) { in.choose(file("a.txt", "A")) }

	files, err := New(host, nil, Config{Cancel: hook}).Open(context.Background(), request.NormalizeOpen(false))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestOperationSettlesOnce(t *testing.T) {
	op := newOperation()
	assert.Equal(t, stateIdle, op.current())
	op.show()
	assert.Equal(t, statePickerShown, op.current())

	assert.True(t, op.reject(fserrors.ErrAborted))
	assert.False(t, op.resolve([]*blob.File{file("a.txt", "A")}))
	assert.False(t, op.reject(io.EOF))
	assert.Equal(t, stateRejected, op.current())

	files, err := op.result()
	assert.Nil(t, files)
	assert.ErrorIs(t, err, fserrors.ErrAborted)

	select {
	case <-op.done:
	default:
		t.Fatal("settled operation must be done")
	}
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("Bytes", func(t *testing.T) {
		host := newFakeHost()
		h, err := New(host, nil, Config{}).Save(ctx, payload.Bytes(blob.New([]byte("data"), "text/plain")), request.Save{FileName: "notes.txt"})
		require.NoError(t, err)
		assert.Nil(t, h)

		require.Len(t, host.anchors, 1)
		a := host.anchors[0]
		assert.Equal(t, "notes.txt", a.download)
		assert.Equal(t, 1, a.clicks)
		require.Contains(t, host.urls, a.href)
		assert.Equal(t, "data", string(host.urls[a.href].Bytes()))

		require.Len(t, host.timers, 1)
		assert.Equal(t, DefaultRevokeDelay, host.timers[0].d)
		assert.Empty(t, host.revoked)
		host.runTimers()
		assert.Equal(t, []string{a.href}, host.revoked)
	})

	t.Run("StreamIsDrained", func(t *testing.T) {
		host := newFakeHost()
		_, err := New(host, nil, Config{RevokeDelay: time.Second}).Save(ctx, payload.Stream(strings.NewReader("streamed"), "application/json"), request.Save{})
		require.NoError(t, err)

		a := host.anchors[0]
		assert.Equal(t, request.DefaultFileName, a.download)
		b := host.urls[a.href]
		assert.Equal(t, "streamed", string(b.Bytes()))
		assert.Equal(t, "application/json", b.Type())
		assert.Equal(t, time.Second, host.timers[0].d)
	})

	t.Run("PendingFailure", func(t *testing.T) {
		host := newFakeHost()
		_, err := New(host, nil, Config{}).Save(ctx, payload.Pending(func(context.Context) (payload.Payload, error) {
			return payload.Payload{}, io.ErrUnexpectedEOF
		}), request.Save{})
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
		assert.Empty(t, host.anchors)
	})
}

func relPaths(files []*fileref.File) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path())
	}
	sort.Strings(out)
	return out
}

func TestOpenDirectory(t *testing.T) {
	tree := func(_ *fakeHost, in *fakeInput) {
		in.choose(
			file("root/a.txt", "a"),
			file("root/sub/b.txt", "b"),
			file("root/node_modules/pkg/index.js", "x"),
		)
	}

	tests := []struct {
		name string
		req  request.Directory
		want []string
	}{
		{"Flat", request.Directory{}, []string{"root/a.txt"}},
		{"Recursive", request.Directory{Recursive: true}, []string{"root/a.txt", "root/node_modules/pkg/index.js", "root/sub/b.txt"}},
		{"SkipAnyDepth", request.Directory{Recursive: true, SkipDirectory: func(e request.Entry) bool { return e.Name == "pkg" }}, []string{"root/a.txt", "root/sub/b.txt"}},
		{"SkipRoot", request.Directory{Recursive: true, SkipDirectory: func(e request.Entry) bool { return e.Name == "root" }}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			host.script = tree

			files, err := New(host, nil, Config{}).OpenDirectory(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, relPaths(files))
			for _, f := range files {
				assert.Nil(t, f.Handle)
			}
			assert.True(t, host.lastInput().directory)
		})
	}
}

func TestOpenDirectoryAborted(t *testing.T) {
	host := newFakeHost()
	host.script = func(h *fakeHost, _ *fakeInput) { h.fire(EventPointerDown) }

	_, err := New(host, nil, Config{}).OpenDirectory(context.Background(), request.Directory{Recursive: true})
	assert.True(t, fserrors.IsAborted(err))
}
