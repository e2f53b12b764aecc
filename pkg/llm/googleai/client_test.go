package googleai

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/user/mindmirror/pkg/llm"
)

type fakeModel struct {
	reply string
	err   error
	got   [][]llms.MessageContent
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	snapshot := make([]llms.MessageContent, len(messages))
	copy(snapshot, messages)
	f.got = append(f.got, snapshot)
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: f.reply}},
	}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func testConversation(t *testing.T, model llms.Model, seed []llm.Message) llm.Conversation {
	t.Helper()
	client := newWithModel(&llm.Config{Model: "gemini-2.5-flash"}, model)
	conv, err := client.NewConversation(context.Background(), "系统指令", seed)
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

func TestNewConversationSeedsHistory(t *testing.T) {
	model := &fakeModel{reply: "回应"}
	conv := testConversation(t, model, []llm.Message{
		{Role: llm.RoleAssistant, Content: "你好。"},
		{Role: llm.RoleUser, Content: "我准备好了"},
	})

	if _, err := conv.Send(context.Background(), "我看到了光"); err != nil {
		t.Fatal(err)
	}

	sent := model.got[0]
	if len(sent) != 4 {
		t.Fatalf("expected system + 2 seed + new turn, got %d", len(sent))
	}
	wantTypes := []schema.ChatMessageType{
		schema.ChatMessageTypeSystem,
		schema.ChatMessageTypeAI,
		schema.ChatMessageTypeHuman,
		schema.ChatMessageTypeHuman,
	}
	for i, want := range wantTypes {
		if sent[i].Role != want {
			t.Errorf("message %d role = %s, want %s", i, sent[i].Role, want)
		}
	}
}

func TestConversationAccumulates(t *testing.T) {
	model := &fakeModel{reply: "回应"}
	conv := testConversation(t, model, nil)

	if _, err := conv.Send(context.Background(), "第一轮"); err != nil {
		t.Fatal(err)
	}
	if _, err := conv.Send(context.Background(), "第二轮"); err != nil {
		t.Fatal(err)
	}

	// Second call carries system + turn 1 + reply 1 + turn 2.
	second := model.got[1]
	if len(second) != 4 {
		t.Fatalf("expected 4 messages on the second call, got %d", len(second))
	}
	if second[2].Role != schema.ChatMessageTypeAI {
		t.Error("the first reply must be retained in the handle")
	}
}

func TestConversationSendFailureLeavesHistoryIntact(t *testing.T) {
	model := &fakeModel{reply: "回应"}
	conv := testConversation(t, model, nil)

	if _, err := conv.Send(context.Background(), "第一轮"); err != nil {
		t.Fatal(err)
	}

	model.err = errors.New("boom")
	if _, err := conv.Send(context.Background(), "失败的一轮"); err == nil {
		t.Fatal("expected an error")
	}

	// The failed turn is not remembered; the retry carries the same
	// history as if the failure never happened.
	model.err = nil
	if _, err := conv.Send(context.Background(), "重试"); err != nil {
		t.Fatal(err)
	}
	retry := model.got[2]
	if len(retry) != 4 {
		t.Fatalf("expected 4 messages on retry, got %d", len(retry))
	}
	last := retry[len(retry)-1]
	if textOf(last) != "重试" {
		t.Errorf("retry turn wrong: %q", textOf(last))
	}
	for _, mc := range retry {
		if textOf(mc) == "失败的一轮" {
			t.Error("failed turn leaked into the handle history")
		}
	}
}

func TestConversationNoChoices(t *testing.T) {
	conv := testConversation(t, noChoiceModel{}, nil)
	if _, err := conv.Send(context.Background(), "hi"); err == nil {
		t.Error("expected an error for a choiceless response")
	}
}

type noChoiceModel struct{}

func (noChoiceModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

func (m noChoiceModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func textOf(mc llms.MessageContent) string {
	for _, part := range mc.Parts {
		if tp, ok := part.(llms.TextContent); ok {
			return tp.Text
		}
	}
	return ""
}
