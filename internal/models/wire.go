package models

// Protocol names the request/response shape spoken with the backend
type Protocol string

const (
	// ProtocolQuery sends {query} and expects {final_response} or {error}.
	ProtocolQuery Protocol = "query"
	// ProtocolConversation sends {message, conversation, model} and expects
	// {response, chartData?} or {error}.
	ProtocolConversation Protocol = "conversation"
)

// DefaultEndpoint is used when neither config nor environment names one
const DefaultEndpoint = "http://127.0.0.1:8000/"

// DefaultModel is sent by the conversation protocol when none is configured
const DefaultModel = "default"

// ParseProtocol validates a protocol name
func ParseProtocol(name string) (Protocol, bool) {
	switch Protocol(name) {
	case ProtocolQuery, "":
		return ProtocolQuery, true
	case ProtocolConversation:
		return ProtocolConversation, true
	default:
		return "", false
	}
}

// AllProtocols returns the supported protocol names
func AllProtocols() []string {
	return []string{string(ProtocolQuery), string(ProtocolConversation)}
}

// QueryRequest is the request body of the query protocol
type QueryRequest struct {
	Query string `json:"query"`
}

// ConversationRequest is the request body of the conversation protocol
type ConversationRequest struct {
	Message      string    `json:"message"`
	Conversation []Message `json:"conversation"`
	Model        string    `json:"model"`
}

// Reply is a decoded successful answer
type Reply struct {
	// Message is the assistant message to append, nil when the backend sent
	// only a chart.
	Message *Message
	// Chart is the optional chart payload.
	Chart *ChartPayload
	// Reveal marks text that should be disclosed incrementally.
	Reveal bool
}

// Text returns the answer text, or "" when there is none
func (r *Reply) Text() string {
	if r == nil || r.Message == nil {
		return ""
	}
	return r.Message.Content
}
