package services

import (
	"context"
	"io"
	"sync"

	appContext "github.com/alphabatem/common/context"
	"github.com/ezfoia/foia_api/dto"
	"github.com/ezfoia/foia_api/pkg/llm"
	"github.com/pkoukk/tiktoken-go"
	log "github.com/sirupsen/logrus"
)

const CHAT_SVC = "chat_svc"

const (
	chatTokenBudget = 12000
	chatEncoding    = "cl100k_base"
	// per-message framing overhead in the chat format
	chatMessageOverhead = 4
)

const chatSystemPrompt = `You are the EZFOIA assistant. You help people understand and use the Freedom of Information Act and state public records laws.
- Explain how FOIA requests work, what agencies can and cannot withhold, typical response times, fees and appeals.
- Help users describe the records they want precisely enough for an agency to find them.
- You are not a lawyer. For legal disputes, suggest consulting an attorney or a press freedom organization.
- Keep answers short and practical.`

type Streamer interface {
	Configured() bool
	Stream(ctx context.Context, messages []llm.Message) (io.ReadCloser, error)
}

// ChatService relays a conversation to the gateway and returns its SSE stream.
type ChatService struct {
	appContext.DefaultService

	gateway     Streamer
	countTokens func(string) int
	encOnce     sync.Once
}

func NewChatService(gateway Streamer, countTokens func(string) int) *ChatService {
	svc := &ChatService{gateway: gateway, countTokens: countTokens}
	if countTokens == nil {
		svc.countTokens = estimateTokens
	}
	return svc
}

func (svc *ChatService) Id() string {
	return CHAT_SVC
}

func (svc *ChatService) Configure(ctx *appContext.Context) error {
	svc.gateway = newGatewayClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *ChatService) Start() error {
	return nil
}

func (svc *ChatService) tokenCounter() func(string) int {
	svc.encOnce.Do(func() {
		if svc.countTokens != nil {
			return
		}
		enc, err := tiktoken.GetEncoding(chatEncoding)
		if err != nil {
			log.WithError(err).Warn("Token encoding unavailable, estimating chat length")
			svc.countTokens = estimateTokens
			return
		}
		svc.countTokens = func(s string) int {
			return len(enc.Encode(s, nil, nil))
		}
	})
	return svc.countTokens
}

func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// TrimHistory drops the oldest messages until the conversation fits budget
// tokens. The newest message is always kept.
func TrimHistory(messages []dto.ChatMessage, budget int, count func(string) int) []dto.ChatMessage {
	if len(messages) == 0 {
		return messages
	}

	total := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		cost := count(messages[i].Content) + chatMessageOverhead
		if total+cost > budget && i < len(messages)-1 {
			break
		}
		total += cost
		start = i
	}
	return messages[start:]
}

// Stream opens the gateway stream for messages. The caller closes the reader.
func (svc *ChatService) Stream(ctx context.Context, messages []dto.ChatMessage) (io.ReadCloser, error) {
	if svc.gateway == nil || !svc.gateway.Configured() {
		return nil, gatewayError(llm.ErrNotConfigured, "Failed to get AI response")
	}

	count := svc.tokenCounter()
	budget := chatTokenBudget - count(chatSystemPrompt) - chatMessageOverhead
	kept := TrimHistory(messages, budget, count)
	if dropped := len(messages) - len(kept); dropped > 0 {
		log.WithField("dropped", dropped).Debug("Trimmed chat history to fit token budget")
	}

	out := make([]llm.Message, 0, len(kept)+1)
	out = append(out, llm.Message{Role: "system", Content: chatSystemPrompt})
	for _, m := range kept {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}

	body, err := svc.gateway.Stream(ctx, out)
	if err != nil {
		return nil, gatewayError(err, "Failed to get AI response")
	}
	return body, nil
}
