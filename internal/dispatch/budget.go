// internal/dispatch/budget.go
package dispatch

import (
	"log/slog"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/mindmirror/pkg/llm"
)

const (
	defaultMaxContextTokens = 128000
	defaultOutputReserve    = 4096
)

// budgetCache keeps one tokenizer per model name and trims stateless
// prompts to the input budget. Journaling transcripts rarely hit the limit,
// but a long session resent in full on every turn eventually would.
type budgetCache struct {
	maxTokens int
	reserve   int

	mu       sync.Mutex
	encoders map[string]*tiktoken.Tiktoken
}

func newBudgetCache(maxTokens, reserve int) *budgetCache {
	return &budgetCache{
		maxTokens: maxTokens,
		reserve:   reserve,
		encoders:  make(map[string]*tiktoken.Tiktoken),
	}
}

func (b *budgetCache) encoder(model string) *tiktoken.Tiktoken {
	b.mu.Lock()
	defer b.mu.Unlock()

	if enc, ok := b.encoders[model]; ok {
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback for unknown models.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			slog.Error("get tokenizer", "model", model, "error", err)
			return nil
		}
	}
	b.encoders[model] = enc
	return enc
}

func (b *budgetCache) countTokens(model, text string) int {
	enc := b.encoder(model)
	if enc == nil {
		// Crude overestimate keeps trimming functional without a tokenizer.
		return len(text) / 2
	}
	return len(enc.Encode(text, nil, nil))
}

// trim drops the oldest history until the prompt fits the input budget.
// The system instruction (first message) and the newest turn are always
// kept.
func (b *budgetCache) trim(model string, msgs []llm.Message) []llm.Message {
	if len(msgs) <= 2 {
		return msgs
	}
	inputBudget := b.maxTokens - b.reserve

	total := 0
	for _, m := range msgs {
		total += b.countTokens(model, m.Content)
	}
	if total <= inputBudget {
		return msgs
	}

	system := msgs[0]
	rest := msgs[1:]
	used := b.countTokens(model, system.Content)

	// Walk newest-first, keeping whole turns that fit.
	kept := make([]llm.Message, 0, len(rest))
	for i := len(rest) - 1; i >= 0; i-- {
		n := b.countTokens(model, rest[i].Content)
		if used+n > inputBudget && len(kept) > 0 {
			break
		}
		used += n
		kept = append(kept, rest[i])
	}

	out := make([]llm.Message, 0, len(kept)+1)
	out = append(out, system)
	for i := len(kept) - 1; i >= 0; i-- {
		out = append(out, kept[i])
	}
	return out
}
