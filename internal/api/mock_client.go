package api

import (
	"context"
	"sync"

	"github.com/diogo/insightchat/internal/models"
)

// MockClient is a scripted Asker for tests in other packages
type MockClient struct {
	// Mock return values
	Reply       *models.Reply
	Err         error
	ProtocolVal models.Protocol
	// Block, when set, makes Ask wait until it is closed or ctx is done
	Block chan struct{}

	mu          sync.Mutex
	calls       []AskRequest
	closeCalled bool
}

var _ Asker = (*MockClient)(nil)

func (m *MockClient) Ask(ctx context.Context, req AskRequest) (*models.Reply, error) {
	m.mu.Lock()
	history := make([]models.Message, len(req.History))
	copy(history, req.History)
	m.calls = append(m.calls, AskRequest{Query: req.Query, History: history})
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reply, m.Err
}

func (m *MockClient) Protocol() models.Protocol {
	if m.ProtocolVal == "" {
		return models.ProtocolQuery
	}
	return m.ProtocolVal
}

func (m *MockClient) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalled = true
}

// SetResult changes what subsequent Ask calls return
func (m *MockClient) SetResult(reply *models.Reply, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reply = reply
	m.Err = err
}

// Calls returns the recorded requests
func (m *MockClient) Calls() []AskRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]AskRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CloseCalled reports whether Close was called
func (m *MockClient) CloseCalled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalled
}
