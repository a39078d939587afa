package api

import (
	"io"
	"sync"

	fhttp "github.com/bogdanfinn/fhttp"
)

// MockResponseBody is a ReadCloser that simulates reading response data
type MockResponseBody struct {
	data   []byte
	pos    int
	closed bool
}

// NewMockResponseBody creates a new MockResponseBody with the given data
func NewMockResponseBody(data []byte) *MockResponseBody {
	return &MockResponseBody{data: data}
}

func (m *MockResponseBody) Read(p []byte) (n int, err error) {
	if m.pos >= len(m.data) {
		return 0, io.EOF
	}
	n = copy(p, m.data[m.pos:])
	m.pos += n
	return n, nil
}

func (m *MockResponseBody) Close() error {
	m.closed = true
	return nil
}

// MockDoer records requests and replays a canned response
type MockDoer struct {
	StatusCode int
	Body       string
	Err        error
	// Wait, when set, makes Do block until the request context is done
	Wait bool

	mu       sync.Mutex
	requests []*fhttp.Request
	bodies   [][]byte
	lastBody *MockResponseBody
}

func (m *MockDoer) Do(req *fhttp.Request) (*fhttp.Response, error) {
	var payload []byte
	if req.Body != nil {
		payload, _ = io.ReadAll(req.Body)
	}

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.bodies = append(m.bodies, payload)
	m.mu.Unlock()

	if m.Wait {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}
	if m.Err != nil {
		return nil, m.Err
	}

	status := m.StatusCode
	if status == 0 {
		status = 200
	}
	body := NewMockResponseBody([]byte(m.Body))

	m.mu.Lock()
	m.lastBody = body
	m.mu.Unlock()

	return &fhttp.Response{
		StatusCode: status,
		Body:       body,
		Header:     make(fhttp.Header),
	}, nil
}

func (m *MockDoer) lastPayload() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.bodies) == 0 {
		return nil
	}
	return m.bodies[len(m.bodies)-1]
}

func (m *MockDoer) lastRequest() *fhttp.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}
