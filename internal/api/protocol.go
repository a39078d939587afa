package api

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/insightchat/internal/errors"
	"github.com/diogo/insightchat/internal/logging"
	"github.com/diogo/insightchat/internal/models"
)

// Codec encodes requests and decodes successful responses for one protocol
type Codec interface {
	Protocol() models.Protocol
	Encode(req AskRequest, model string) ([]byte, error)
	Decode(body []byte) (*models.Reply, error)
}

// CodecFor returns the codec implementing the named protocol
func CodecFor(p models.Protocol) (Codec, error) {
	switch p {
	case models.ProtocolQuery, "":
		return QueryCodec{}, nil
	case models.ProtocolConversation:
		return ConversationCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported protocol %q", p)
	}
}

// QueryCodec speaks the query protocol: {query} -> {final_response} | {error}
type QueryCodec struct{}

func (QueryCodec) Protocol() models.Protocol { return models.ProtocolQuery }

func (QueryCodec) Encode(req AskRequest, _ string) ([]byte, error) {
	return json.Marshal(models.QueryRequest{Query: req.Query})
}

// Decode returns a reply marked for incremental reveal
func (QueryCodec) Decode(body []byte) (*models.Reply, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	final := gjson.GetBytes(body, PathFinalResponse)
	if truthy(final) {
		msg := models.AssistantMessage(final.String())
		return &models.Reply{Message: &msg, Reveal: true}, nil
	}

	if errVal := gjson.GetBytes(body, PathError); truthy(errVal) {
		return nil, apierrors.NewBackendError(errVal.String())
	}

	return nil, apierrors.NewUnexpectedResponseError(string(body))
}

// ConversationCodec speaks the conversation protocol:
// {message, conversation, model} -> {response, chartData?} | {error}
type ConversationCodec struct{}

func (ConversationCodec) Protocol() models.Protocol { return models.ProtocolConversation }

func (ConversationCodec) Encode(req AskRequest, model string) ([]byte, error) {
	history := req.History
	if history == nil {
		history = []models.Message{}
	}
	if model == "" {
		model = models.DefaultModel
	}
	return json.Marshal(models.ConversationRequest{
		Message:      req.Query,
		Conversation: history,
		Model:        model,
	})
}

// Decode applies the message and chart as sent, without reveal
func (ConversationCodec) Decode(body []byte) (*models.Reply, error) {
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("response is not valid JSON", "")
	}

	parsed := gjson.ParseBytes(body)
	reply := &models.Reply{}

	if resp := parsed.Get(PathResponse); resp.IsObject() {
		role := parsed.Get(PathResponseRole).String()
		if role == "" {
			role = models.RoleAssistant
		}
		reply.Message = &models.Message{
			Role:    role,
			Content: parsed.Get(PathResponseContent).String(),
		}
	}

	if chartData := parsed.Get(PathChartData); chartData.IsObject() {
		var chart models.ChartPayload
		if err := json.Unmarshal([]byte(chartData.Raw), &chart); err != nil {
			// An unreadable chart never costs the answer; the empty payload
			// draws as the placeholder.
			logger := logging.For("api")
			logger.Warn().
				Err(apierrors.NewParseError(err.Error(), PathChartData)).
				Msg("chart payload unreadable")
			chart = models.ChartPayload{}
		}
		reply.Chart = &chart
	}

	if reply.Message != nil || reply.Chart != nil {
		return reply, nil
	}

	if errVal := parsed.Get(PathError); truthy(errVal) {
		return nil, apierrors.NewBackendError(errVal.String())
	}

	return nil, apierrors.NewUnexpectedResponseError(string(body))
}

// failureMessage extracts the error text of a non-success response
func failureMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if errVal := gjson.GetBytes(body, PathError); truthy(errVal) {
			return errVal.String()
		}
	}
	return apierrors.DefaultServerFailure
}

// truthy mirrors how the backend's own clients test fields: empty strings,
// zero, false and null are absent.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}
