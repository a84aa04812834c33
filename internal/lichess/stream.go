package lichess

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/valyala/fasthttp"
)

// EventStream yields decoded events from an ndjson endpoint.
type EventStream interface {
	// Next returns the next known event. Unknown event types and blank
	// keep-alive lines are skipped. io.EOF marks a clean end of stream.
	// A malformed line yields an error wrapping ErrInvalidEvent and the
	// stream stays usable.
	Next(ctx context.Context) (Event, error)
	Close() error
}

const maxLineSize = 1 << 20

// lineStream reads an ndjson body. Reads block until a line arrives or the
// server closes the connection; ctx is checked between lines.
type lineStream struct {
	req    *fasthttp.Request
	resp   *fasthttp.Response
	reader *bufio.Reader

	closeOnce sync.Once
	closeErr  error
}

func (c *Client) openStream(ctx context.Context, path string) (EventStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	c.prepare(req, fasthttp.MethodGet, path)
	req.Header.Set("Accept", "application/x-ndjson")

	if err := c.stream.Do(req, resp); err != nil {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, fmt.Errorf("open stream %s: %w", path, err)
	}
	if status := resp.StatusCode(); status < 200 || status >= 300 {
		err := &APIError{Status: status, Path: path, Body: truncate(string(resp.Body()), 512)}
		_ = resp.CloseBodyStream()
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
		return nil, err
	}

	body := resp.BodyStream()
	if body == nil {
		// short replies may arrive fully buffered
		body = bytes.NewReader(append([]byte(nil), resp.Body()...))
	}
	return &lineStream{req: req, resp: resp, reader: bufio.NewReaderSize(body, 64*1024)}, nil
}

func (s *lineStream) Next(ctx context.Context) (Event, error) {
	for {
		line, err := s.nextLine(ctx)
		if err != nil {
			return nil, err
		}
		ev, err := DecodeEvent(line)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			continue
		}
		return ev, nil
	}
}

func (s *lineStream) nextLine(ctx context.Context) ([]byte, error) {
	var buf []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read stream: %w", err)
		}
		buf = append(buf, chunk...)
		if len(buf) > maxLineSize {
			return nil, fmt.Errorf("read stream: line exceeds %d bytes", maxLineSize)
		}
		if isPrefix {
			continue
		}
		if line := bytes.TrimSpace(buf); len(line) > 0 {
			return line, nil
		}
		buf = buf[:0]
	}
}

func (s *lineStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.resp.CloseBodyStream()
		fasthttp.ReleaseRequest(s.req)
		fasthttp.ReleaseResponse(s.resp)
	})
	return s.closeErr
}
