package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diogo/insightchat/internal/api"
	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/models"
)

func queryReply(text string) *models.Reply {
	msg := models.AssistantMessage(text)
	return &models.Reply{Message: &msg, Reveal: true}
}

func TestSubmit_IgnoresBlankQueries(t *testing.T) {
	client := &api.MockClient{Reply: queryReply("x")}
	c := NewController(client, WithReveal(true, 0))
	c.SetInput("   ")

	for _, q := range []string{"", " ", "\t\n"} {
		assert.False(t, c.Submit(context.Background(), q))
	}

	snap := c.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.Equal(t, "   ", snap.Input)
	assert.False(t, snap.Loading)
	assert.Equal(t, uint64(0), snap.Generation)
	assert.Empty(t, client.Calls())
}

func TestBegin_OrderOfEffects(t *testing.T) {
	c := NewController(&api.MockClient{}, WithReveal(false, 0))
	c.SetInput("top customers")

	// Seed a chart from an earlier answer
	chart := &models.ChartPayload{Labels: []string{"A"}, Datasets: []models.Dataset{{Data: []float64{1}}}}
	first, ok := c.Begin("first")
	require.True(t, ok)
	c.Resolve(Outcome{Generation: first.Generation, Reply: &models.Reply{Chart: chart}})
	require.NotNil(t, c.Chart())

	pending, ok := c.Begin("top customers")
	require.True(t, ok)

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, models.UserMessage("top customers"), snap.Messages[1])
	assert.Equal(t, "", snap.Input)
	assert.True(t, snap.Loading)
	assert.Nil(t, snap.Chart)
	assert.Equal(t, AwaitingResponse, snap.Phase)

	// History excludes the message just submitted
	assert.Equal(t, []models.Message{models.UserMessage("first")}, pending.History)
	assert.Equal(t, snap.Generation, pending.Generation)
}

func TestSubmit_UserMessageBeforeRequest(t *testing.T) {
	var seen []models.Message
	var c *Controller
	client := &recordingAsker{fn: func(req api.AskRequest) (*models.Reply, error) {
		seen = c.Messages()
		return queryReply("ok"), nil
	}}
	c = NewController(client, WithReveal(true, 0))

	require.True(t, c.Submit(context.Background(), "q1"))
	require.Len(t, seen, 1)
	assert.Equal(t, models.UserMessage("q1"), seen[0])
}

func TestSubmit_RevealProducesGrowingPrefixes(t *testing.T) {
	client := &api.MockClient{Reply: queryReply("OK")}
	c := NewController(client, WithReveal(true, 0))

	pending, ok := c.Begin("status?")
	require.True(t, ok)
	r := c.Resolve(c.Fetch(context.Background(), pending))
	require.NotNil(t, r)

	// The empty assistant message exists before the first step
	snap := c.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "", snap.Messages[1].Content)
	assert.True(t, snap.Loading)
	assert.Equal(t, Rendering, snap.Phase)

	var prefixes []string
	require.NoError(t, r.Run(context.Background(), 0, func(text string) {
		prefixes = append(prefixes, text)
	}))

	assert.Equal(t, []string{"O", "OK"}, prefixes)
	for i := 1; i < len(prefixes); i++ {
		assert.True(t, strings.HasPrefix(prefixes[i], prefixes[i-1]))
	}

	last, ok := c.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "OK", last)
	assert.False(t, c.Loading())
	assert.Equal(t, Idle, c.Phase())
}

func TestSubmit_RevealHandlesMultibyteText(t *testing.T) {
	c := NewController(&api.MockClient{Reply: queryReply("né✓")}, WithReveal(true, 0))

	pending, _ := c.Begin("q")
	r := c.Resolve(c.Fetch(context.Background(), pending))
	require.NotNil(t, r)

	var prefixes []string
	require.NoError(t, r.Run(context.Background(), 0, func(text string) { prefixes = append(prefixes, text) }))
	assert.Equal(t, []string{"n", "né", "né✓"}, prefixes)
}

func TestSubmit_RevealDisabledAppliesAtOnce(t *testing.T) {
	c := NewController(&api.MockClient{Reply: queryReply("full text")}, WithReveal(false, 0))

	require.True(t, c.Submit(context.Background(), "q"))
	last, _ := c.LastAssistant()
	assert.Equal(t, "full text", last)
	assert.False(t, c.Loading())
}

func TestSubmit_ConversationAppliesMessageAndChart(t *testing.T) {
	msg := models.AssistantMessage("See chart")
	chart := &models.ChartPayload{
		ChartType: "line",
		Labels:    []string{"Jan", "Feb"},
		Datasets:  []models.Dataset{{Label: "sales", Data: []float64{3, 5}}},
	}
	client := &api.MockClient{Reply: &models.Reply{Message: &msg, Chart: chart}, ProtocolVal: models.ProtocolConversation}

	var transitions []Phase
	c := NewController(client, WithTransitionHook(func(_, to Phase) { transitions = append(transitions, to) }))

	require.True(t, c.Submit(context.Background(), "monthly sales"))

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "See chart", snap.Messages[1].Content)
	require.NotNil(t, snap.Chart)
	assert.Equal(t, "line", snap.Chart.ChartType)
	assert.False(t, snap.Loading)
	assert.Equal(t, []Phase{AwaitingResponse, Applied, Idle}, transitions)

	// The stored chart is a copy
	chart.Labels[0] = "mutated"
	assert.Equal(t, "Jan", c.Chart().Labels[0])
}

func TestSubmit_ErrorsBecomeAssistantMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"backend error", apierrors.NewBackendError("bad query"), "Error: bad query"},
		{"failure status", apierrors.NewAPIError(400, "http://x/", "bad query"), "Sorry, there was an error: bad query"},
		{"network", apierrors.NewNetworkError("ask", errors.New("connection refused")), "Sorry, there was an error: connection refused"},
		{"unexpected", apierrors.NewUnexpectedResponseError("{}"), "Unexpected response from server."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var transitions []Phase
			c := NewController(&api.MockClient{Err: tt.err},
				WithTransitionHook(func(_, to Phase) { transitions = append(transitions, to) }))

			require.True(t, c.Submit(context.Background(), "q"))

			msgs := c.Messages()
			require.Len(t, msgs, 2)
			assert.Equal(t, models.RoleAssistant, msgs[1].Role)
			assert.Equal(t, tt.want, msgs[1].Content)
			assert.False(t, c.Loading())
			assert.Equal(t, []Phase{AwaitingResponse, Errored, Idle}, transitions)
		})
	}
}

func TestResolve_DiscardsStaleOutcomes(t *testing.T) {
	c := NewController(&api.MockClient{}, WithReveal(true, 0))

	first, _ := c.Begin("first")
	second, _ := c.Begin("second")

	assert.Nil(t, c.Resolve(Outcome{Generation: first.Generation, Reply: queryReply("old")}))
	assert.Len(t, c.Messages(), 2)
	assert.True(t, c.Loading())

	r := c.Resolve(Outcome{Generation: second.Generation, Reply: queryReply("new")})
	require.NotNil(t, r)
	require.NoError(t, r.Run(context.Background(), 0, nil))

	msgs := c.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "new", msgs[2].Content)
}

func TestReveal_SupersededBySubmission(t *testing.T) {
	c := NewController(&api.MockClient{}, WithReveal(true, 0))

	p, _ := c.Begin("first")
	r := c.Resolve(Outcome{Generation: p.Generation, Reply: queryReply("abcdef")})
	require.NotNil(t, r)
	require.True(t, r.Step())

	_, ok := c.Begin("second")
	require.True(t, ok)

	assert.False(t, r.Step())
	assert.True(t, r.Done())

	msgs := c.Messages()
	assert.Equal(t, "a", msgs[1].Content)
	assert.True(t, c.Loading())
}

func TestSkipReveal(t *testing.T) {
	c := NewController(&api.MockClient{}, WithReveal(true, time.Hour))
	assert.False(t, c.SkipReveal())

	p, _ := c.Begin("q")
	r := c.Resolve(Outcome{Generation: p.Generation, Reply: queryReply("long answer")})
	require.NotNil(t, r)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), time.Hour, nil) }()

	require.Eventually(t, func() bool { return r.Text() == "l" }, time.Second, time.Millisecond)
	assert.True(t, c.SkipReveal())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reveal did not stop after skip")
	}

	last, _ := c.LastAssistant()
	assert.Equal(t, "long answer", last)
	assert.False(t, c.Loading())
	assert.False(t, c.SkipReveal())
}

func TestClose_CancelsReveal(t *testing.T) {
	c := NewController(&api.MockClient{}, WithReveal(true, time.Hour))

	p, _ := c.Begin("q")
	r := c.Resolve(Outcome{Generation: p.Generation, Reply: queryReply("answer")})
	require.NotNil(t, r)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), time.Hour, nil) }()
	require.Eventually(t, func() bool { return r.Text() != "" }, time.Second, time.Millisecond)

	c.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("reveal did not stop after close")
	}
	assert.False(t, r.Step())
	assert.Equal(t, "a", r.Text())
	assert.False(t, c.Loading())
	assert.Equal(t, Idle, c.Phase())
}

func TestSubmit_ContextEndsMidReveal(t *testing.T) {
	client := &api.MockClient{Reply: queryReply("hello world")}
	c := NewController(client, WithReveal(true, 20*time.Millisecond))
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.True(t, c.Submit(ctx, "q"))

	snap := c.Snapshot()
	assert.False(t, snap.Loading)
	assert.Equal(t, Idle, snap.Phase)
	last, ok := c.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "hello world", last)
	assert.False(t, c.SkipReveal())

	// the controller keeps working afterwards
	client.SetResult(queryReply("ok"), nil)
	require.True(t, c.Submit(context.Background(), "again"))
	last, _ = c.LastAssistant()
	assert.Equal(t, "ok", last)
}

func TestClear(t *testing.T) {
	client := &api.MockClient{Reply: queryReply("hi")}
	c := NewController(client, WithReveal(false, 0))
	require.True(t, c.Submit(context.Background(), "q"))

	p, _ := c.Begin("in flight")
	c.Clear()

	assert.Nil(t, c.Resolve(Outcome{Generation: p.Generation, Reply: queryReply("late")}))
	snap := c.Snapshot()
	assert.Empty(t, snap.Messages)
	assert.False(t, snap.Loading)
	assert.Equal(t, Idle, snap.Phase)
	_, ok := c.LastAssistant()
	assert.False(t, ok)
}

func TestFetch_PassesHistory(t *testing.T) {
	client := &api.MockClient{Reply: queryReply("a")}
	c := NewController(client, WithReveal(false, 0))

	require.True(t, c.Submit(context.Background(), "one"))
	require.True(t, c.Submit(context.Background(), "two"))

	calls := client.Calls()
	require.Len(t, calls, 2)
	assert.Empty(t, calls[0].History)
	assert.Equal(t, []models.Message{models.UserMessage("one"), models.AssistantMessage("a")}, calls[1].History)
	assert.Equal(t, "two", calls[1].Query)
}

func TestConcurrentSubmissions(t *testing.T) {
	client := &api.MockClient{Reply: queryReply("ok")}
	c := NewController(client, WithReveal(true, 0))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Submit(context.Background(), "q")
		}()
	}
	wg.Wait()

	user := 0
	for _, m := range c.Messages() {
		if m.IsUser() {
			user++
		}
	}
	assert.Equal(t, 8, user)
	assert.False(t, c.Loading())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "awaiting_response", AwaitingResponse.String())
	assert.Equal(t, "rendering", Rendering.String())
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "errored", Errored.String())
}

type recordingAsker struct {
	fn func(req api.AskRequest) (*models.Reply, error)
}

func (r *recordingAsker) Ask(_ context.Context, req api.AskRequest) (*models.Reply, error) {
	return r.fn(req)
}

func (r *recordingAsker) Protocol() models.Protocol { return models.ProtocolQuery }

func (r *recordingAsker) Close() {}
