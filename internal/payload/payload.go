// Package payload normalizes the different things a caller may hand to a save.
package payload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/stackvity/fsaccess/internal/blob"
)

// Kind tags which variant a Payload holds.
type Kind int

const (
	KindBytes Kind = iota
	KindStream
	KindResponse
	KindPending
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindStream:
		return "stream"
	case KindResponse:
		return "response"
	case KindPending:
		return "pending"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var errNilPayload = errors.New("payload: nothing to save")

// Payload is a tagged union over a byte blob, an incremental stream, a network
// response, or a payload that is not available yet.
type Payload struct {
	kind    Kind
	blob    blob.Blob
	stream  io.Reader
	typ     string
	resp    *http.Response
	pending func(context.Context) (Payload, error)
}

// Bytes wraps a fully materialized blob.
func Bytes(b blob.Blob) Payload {
	return Payload{kind: KindBytes, blob: b}
}

// Stream wraps a reader consumed incrementally. typ may be empty.
func Stream(r io.Reader, typ string) Payload {
	return Payload{kind: KindStream, stream: r, typ: typ}
}

// Response wraps an HTTP response; its body is streamed.
func Response(resp *http.Response) Payload {
	return Payload{kind: KindResponse, resp: resp}
}

// Pending wraps a payload that must be awaited first. The function may itself
// yield another pending payload.
func Pending(f func(context.Context) (Payload, error)) Payload {
	return Payload{kind: KindPending, pending: f}
}

// Kind returns the variant held.
func (p Payload) Kind() Kind { return p.kind }

// Resolved is a payload after all waiting is done.
type Resolved struct {
	// Type is the media type the payload declares, or blob.WildcardType.
	Type string

	stream io.Reader
	closer io.Closer
	data   blob.Blob
}

// Resolve awaits pending payloads and works out the content type: the
// payload's own type first, then a response's Content-Type header, then the
// wildcard type.
func (p Payload) Resolve(ctx context.Context) (*Resolved, error) {
	for p.kind == KindPending {
		if p.pending == nil {
			return nil, errNilPayload
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := p.pending(ctx)
		if err != nil {
			return nil, err
		}
		p = next
	}

	switch p.kind {
	case KindBytes:
		return &Resolved{Type: orWildcard(p.blob.Type()), data: p.blob}, nil
	case KindStream:
		if p.stream == nil {
			return nil, errNilPayload
		}
		r := &Resolved{Type: orWildcard(p.typ), stream: p.stream}
		if c, ok := p.stream.(io.Closer); ok {
			r.closer = c
		}
		return r, nil
	case KindResponse:
		if p.resp == nil || p.resp.Body == nil {
			return nil, errNilPayload
		}
		return &Resolved{
			Type:   orWildcard(contentType(p.resp.Header)),
			stream: p.resp.Body,
			closer: p.resp.Body,
		}, nil
	default:
		return nil, fmt.Errorf("payload: unsupported kind %s", p.kind)
	}
}

// Streaming reports whether the payload should be piped rather than written
// in one call.
func (r *Resolved) Streaming() bool { return r.stream != nil }

// Stream returns the incremental source. Only valid when Streaming is true.
func (r *Resolved) Stream() io.Reader { return r.stream }

// Blob returns the materialized content. Only valid when Streaming is false.
func (r *Resolved) Blob() blob.Blob { return r.data }

// ReadAll materializes the payload, draining a stream if there is one. The
// returned blob carries Type unless the type is the wildcard.
func (r *Resolved) ReadAll() (blob.Blob, error) {
	if !r.Streaming() {
		return r.data, nil
	}
	data, err := io.ReadAll(r.stream)
	if err != nil {
		return blob.Blob{}, err
	}
	typ := r.Type
	if typ == blob.WildcardType {
		typ = ""
	}
	r.data = blob.New(data, typ)
	r.stream = nil
	return r.data, nil
}

// Close releases a response body or closable stream.
func (r *Resolved) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c.Close()
}

func contentType(h http.Header) string {
	raw := h.Get("Content-Type")
	if raw == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return raw
	}
	return mediaType
}

func orWildcard(typ string) string {
	if typ == "" {
		return blob.WildcardType
	}
	return typ
}
