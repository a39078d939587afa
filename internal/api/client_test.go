package api

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/models"
)

func newTestClient(t *testing.T, doer *MockDoer, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithHTTPClient(doer), WithEndpoint("http://backend.test/")}, opts...)
	c, err := NewClient(opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(WithHTTPClient(&MockDoer{}))
	require.NoError(t, err)
	assert.Equal(t, models.DefaultEndpoint, c.Endpoint())
	assert.Equal(t, models.ProtocolQuery, c.Protocol())
}

func TestNewClient_EmptyEndpoint(t *testing.T) {
	_, err := NewClient(WithHTTPClient(&MockDoer{}), WithEndpoint("  "))
	assert.Error(t, err)
}

func TestAsk_QueryProtocol(t *testing.T) {
	doer := &MockDoer{Body: `{"final_response":"Revenue rose 12%."}`}
	c := newTestClient(t, doer)

	reply, err := c.Ask(context.Background(), AskRequest{
		Query:   "how did revenue do?",
		History: []models.Message{models.UserMessage("earlier")},
	})
	require.NoError(t, err)

	assert.True(t, reply.Reveal)
	assert.Nil(t, reply.Chart)
	assert.Equal(t, "Revenue rose 12%.", reply.Text())
	assert.Equal(t, models.RoleAssistant, reply.Message.Role)

	// History is not part of the query protocol
	assert.JSONEq(t, `{"query":"how did revenue do?"}`, string(doer.lastPayload()))

	req := doer.lastRequest()
	require.NotNil(t, req)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.True(t, doer.lastBody.closed)
}

func TestAsk_ConversationProtocol(t *testing.T) {
	doer := &MockDoer{Body: `{
		"response": {"role": "assistant", "content": "Here is the split."},
		"chartData": {"chartType": "pie", "labels": ["A","B"], "datasets": [{"label": "share", "data": [60, 40]}]}
	}`}
	c := newTestClient(t, doer, WithProtocol(models.ProtocolConversation), WithModel("analyst-v2"))

	history := []models.Message{models.UserMessage("hi"), models.AssistantMessage("hello")}
	reply, err := c.Ask(context.Background(), AskRequest{Query: "split by region", History: history})
	require.NoError(t, err)

	assert.False(t, reply.Reveal)
	assert.Equal(t, "Here is the split.", reply.Text())
	require.NotNil(t, reply.Chart)
	assert.Equal(t, "pie", reply.Chart.ChartType)
	assert.Equal(t, []string{"A", "B"}, reply.Chart.Labels)
	assert.Equal(t, []float64{60, 40}, reply.Chart.Datasets[0].Data)

	assert.JSONEq(t, `{
		"message": "split by region",
		"conversation": [{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}],
		"model": "analyst-v2"
	}`, string(doer.lastPayload()))
}

func TestConversationDecode_LenientChart(t *testing.T) {
	body := `{
		"response": {"role": "assistant", "content": "Sales by year"},
		"chartData": {"labels": [2022, 2023, true], "datasets": [{"label": 7, "data": [1, "2.5", null], "backgroundColor": "red"}]}
	}`

	reply, err := ConversationCodec{}.Decode([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "Sales by year", reply.Text())
	require.NotNil(t, reply.Chart)
	assert.True(t, reply.Chart.Valid())
	assert.Equal(t, []string{"2022", "2023", "true"}, reply.Chart.Labels)

	ds := reply.Chart.Datasets[0]
	assert.Equal(t, "7", ds.Label)
	require.Len(t, ds.Data, 3)
	assert.Equal(t, []float64{1, 2.5}, ds.Data[:2])
	assert.True(t, math.IsNaN(ds.Data[2]))
}

func TestConversationDecode_UnreadableChartKeepsAnswer(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
	}{
		{"with message", `{"response":{"role":"assistant","content":"Here you go"},"chartData":{"labels":"oops","datasets":[]}}`, "Here you go"},
		{"chart only", `{"chartData":{"labels":["A"],"datasets":[{"data":5}]}}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &MockDoer{Body: tt.body}, WithProtocol(models.ProtocolConversation))

			reply, err := c.Ask(context.Background(), AskRequest{Query: "q"})
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, reply.Text())
			require.NotNil(t, reply.Chart)
			assert.False(t, reply.Chart.Valid())
		})
	}
}

func TestAsk_Failures(t *testing.T) {
	tests := []struct {
		name     string
		doer     *MockDoer
		protocol models.Protocol
		check    func(t *testing.T, err error)
		chatText string
	}{
		{
			name: "backend error in success body",
			doer: &MockDoer{Body: `{"error":"table not found"}`},
			check: func(t *testing.T, err error) {
				var be *apierrors.BackendError
				assert.True(t, errors.As(err, &be))
			},
			chatText: "Error: table not found",
		},
		{
			name: "empty final_response is not an answer",
			doer: &MockDoer{Body: `{"final_response":""}`},
			check: func(t *testing.T, err error) {
				assert.True(t, apierrors.IsUnexpectedResponse(err))
			},
			chatText: "Unexpected response from server.",
		},
		{
			name: "non-OK with error text",
			doer: &MockDoer{StatusCode: 500, Body: `{"error":"db down"}`},
			check: func(t *testing.T, err error) {
				assert.Equal(t, 500, apierrors.GetHTTPStatus(err))
			},
			chatText: "Sorry, there was an error: db down",
		},
		{
			name: "non-OK without error text",
			doer: &MockDoer{StatusCode: 502, Body: `<html>bad gateway</html>`},
			check: func(t *testing.T, err error) {
				assert.Equal(t, 502, apierrors.GetHTTPStatus(err))
			},
			chatText: "Sorry, there was an error: Failed to get response from server",
		},
		{
			name: "transport failure",
			doer: &MockDoer{Err: errors.New("connection refused")},
			check: func(t *testing.T, err error) {
				assert.True(t, apierrors.IsNetworkError(err))
			},
			chatText: "Sorry, there was an error: connection refused",
		},
		{
			name: "malformed body",
			doer: &MockDoer{Body: `not json`},
			check: func(t *testing.T, err error) {
				assert.True(t, apierrors.IsParseError(err))
			},
		},
		{
			name:     "conversation without response or error",
			doer:     &MockDoer{Body: `{"status":"ok"}`},
			protocol: models.ProtocolConversation,
			check: func(t *testing.T, err error) {
				assert.True(t, apierrors.IsUnexpectedResponse(err))
			},
			chatText: "Unexpected response from server.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []ClientOption
			if tt.protocol != "" {
				opts = append(opts, WithProtocol(tt.protocol))
			}
			c := newTestClient(t, tt.doer, opts...)

			reply, err := c.Ask(context.Background(), AskRequest{Query: "q"})
			require.Error(t, err)
			assert.Nil(t, reply)
			tt.check(t, err)
			if tt.chatText != "" {
				assert.Equal(t, tt.chatText, apierrors.ChatText(err))
			}
		})
	}
}

func TestAsk_Timeout(t *testing.T) {
	c := newTestClient(t, &MockDoer{Wait: true}, WithTimeout(20*time.Millisecond))

	_, err := c.Ask(context.Background(), AskRequest{Query: "slow"})
	require.Error(t, err)
	assert.True(t, apierrors.IsTimeoutError(err))
}

func TestAsk_CallerCancel(t *testing.T) {
	c := newTestClient(t, &MockDoer{Wait: true}, WithTimeout(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Ask(ctx, AskRequest{Query: "q"})
	require.Error(t, err)
	assert.True(t, apierrors.IsNetworkError(err))
	assert.False(t, apierrors.IsTimeoutError(err))
}

func TestAsk_EmptyQueryAndClosed(t *testing.T) {
	doer := &MockDoer{Body: `{"final_response":"x"}`}
	c := newTestClient(t, doer)

	_, err := c.Ask(context.Background(), AskRequest{Query: "   "})
	assert.ErrorIs(t, err, apierrors.ErrEmptyQuery)

	c.Close()
	assert.True(t, c.IsClosed())
	_, err = c.Ask(context.Background(), AskRequest{Query: "q"})
	assert.Error(t, err)
	assert.Nil(t, doer.lastRequest())
}

func TestWithProtocol_UnknownKeepsDefault(t *testing.T) {
	c := newTestClient(t, &MockDoer{}, WithProtocol("smoke-signals"))
	assert.Equal(t, models.ProtocolQuery, c.Protocol())
}
