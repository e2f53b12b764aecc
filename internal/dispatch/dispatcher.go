// Package dispatch normalizes "continue this conversation with one new user
// turn" across heterogeneous AI providers: a stateful SDK family whose
// handle retains history, and stateless REST families that get the full
// history resent each call. Expected failures never escape as errors; they
// come back as fixed user-visible strings.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/user/mindmirror/internal/guide"
	"github.com/user/mindmirror/internal/settings"
	"github.com/user/mindmirror/internal/types"
	"github.com/user/mindmirror/pkg/llm"
	"github.com/user/mindmirror/pkg/llm/googleai"
	"github.com/user/mindmirror/pkg/llm/openai"
)

// Fixed user-visible replies. These are stored as ordinary model messages,
// keeping the transcript a complete record including failures.
const (
	// MsgConfigureKey is returned without any network call when no API key
	// is configured. It is a normal reply, not an error.
	MsgConfigureKey = "请先在设置中配置 API Key，然后再开始对话。"

	// MsgApology replaces replies lost to transport or provider failures.
	MsgApology = "连接断开，请检查网络设置或稍后再试。"

	// MsgEmptyReply stands in when the provider answers with no text.
	MsgEmptyReply = "抱歉，我现在无法回应，请稍后再试。"
)

// MsgStatus formats a non-2xx provider response for the transcript.
func MsgStatus(code int) string {
	return fmt.Sprintf("请求失败（状态码 %d），请检查 API 设置后重试。", code)
}

// Dispatcher owns provider construction and the uniform send contract.
// Adding a provider family means adding one arm here; the controller never
// branches on provider type beyond handle construction.
type Dispatcher struct {
	budgets *budgetCache

	// Construction seams for tests.
	newStateless func(cfg *llm.Config) llm.Provider
	newStateful  func(cfg *llm.Config) llm.StatefulProvider
}

// New creates a Dispatcher with the real provider constructors.
func New() *Dispatcher {
	return &Dispatcher{
		budgets: newBudgetCache(defaultMaxContextTokens, defaultOutputReserve),
		newStateless: func(cfg *llm.Config) llm.Provider {
			return openai.New(cfg)
		},
		newStateful: func(cfg *llm.Config) llm.StatefulProvider {
			return googleai.New(cfg)
		},
	}
}

// Send continues a conversation with one new user turn and returns the
// model reply text. It never returns an error: configuration gaps and
// provider failures come back as the fixed strings above.
//
// For stateful providers conv must be an open handle; history is ignored
// because the handle retains it. For stateless providers conv is ignored
// and the prompt is rebuilt from history.
func (d *Dispatcher) Send(ctx context.Context, conv llm.Conversation, text string, history []types.Message, st settings.Settings) string {
	if st.APIKey == "" {
		return MsgConfigureKey
	}

	if st.Stateful() {
		return d.sendStateful(ctx, conv, text)
	}
	return d.sendStateless(ctx, text, history, st)
}

func (d *Dispatcher) sendStateful(ctx context.Context, conv llm.Conversation, text string) string {
	if conv == nil {
		slog.Error("stateful send without conversation handle")
		return MsgApology
	}
	reply, err := conv.Send(ctx, text)
	if err != nil {
		slog.Error("stateful send failed", "error", err)
		return MsgApology
	}
	if reply == "" {
		return MsgEmptyReply
	}
	return reply
}

func (d *Dispatcher) sendStateless(ctx context.Context, text string, history []types.Message, st settings.Settings) string {
	msgs := append(mapHistory(history), llm.Message{Role: llm.RoleUser, Content: text})
	msgs = d.budgets.trim(st.ModelName, msgs)

	provider := d.newStateless(&llm.Config{
		BaseURL: st.APIEndpoint,
		APIKey:  st.APIKey,
		Model:   st.ModelName,
	})

	reply, err := provider.Complete(ctx, msgs)
	if err != nil {
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			slog.Error("provider rejected request", "status", statusErr.Code)
			return MsgStatus(statusErr.Code)
		}
		slog.Error("stateless send failed", "error", err)
		return MsgApology
	}
	if reply == "" {
		return MsgEmptyReply
	}
	return reply
}

// NewConversation opens a stateful handle seeded with the system
// instruction plus the session's visible history. Stateless providers need
// no handle; callers get nil.
func (d *Dispatcher) NewConversation(ctx context.Context, seed []types.Message, st settings.Settings) (llm.Conversation, error) {
	if !st.Stateful() {
		return nil, nil
	}
	provider := d.newStateful(&llm.Config{
		BaseURL: st.APIEndpoint,
		APIKey:  st.APIKey,
		Model:   st.ModelName,
	})
	conv, err := provider.NewConversation(ctx, guide.SystemInstruction, seedMessages(seed))
	if err != nil {
		return nil, fmt.Errorf("open conversation: %w", err)
	}
	return conv, nil
}

// Prime sends the hidden payload context into a fresh stateful
// conversation. The text is never displayed and never stored; failures are
// logged and swallowed so the visible flow continues regardless.
func (d *Dispatcher) Prime(ctx context.Context, conv llm.Conversation, payload types.Payload) {
	if conv == nil {
		return
	}
	text := guide.PrimingContext(payload)
	if text == "" {
		return
	}
	if _, err := conv.Send(ctx, text); err != nil {
		slog.Warn("priming send failed", "error", err)
	}
}

// mapHistory converts transcript messages to provider vocabulary with the
// system instruction prefixed.
func mapHistory(history []types.Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: guide.SystemInstruction})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: providerRole(m.Role), Content: m.Text})
	}
	return msgs
}

func seedMessages(history []types.Message) []llm.Message {
	msgs := make([]llm.Message, 0, len(history))
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: providerRole(m.Role), Content: m.Text})
	}
	return msgs
}

func providerRole(r types.Role) string {
	if r == types.RoleUser {
		return llm.RoleUser
	}
	return llm.RoleAssistant
}
