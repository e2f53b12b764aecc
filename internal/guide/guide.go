// Package guide owns the fixed therapeutic text: the system instruction,
// opening messages, hidden priming context, and session titles.
package guide

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/user/mindmirror/internal/types"
)

//go:embed prompts/system.md
var SystemInstruction string

// Opening messages shown as the first model-authored message of a session.
const (
	cardOpening     = "你好。请深呼吸，看着这张卡片。当你准备好时，告诉我，你第一眼看到这张图和这个词时，想到了什么？"
	sandplayOpening = "你好。请静静地看一会儿你刚刚完成的沙盘。当你准备好时，告诉我，你现在最先注意到的是哪一个物件？"
)

// OpeningMessage returns the model-authored message every new session
// starts with, according to the payload type.
func OpeningMessage(p types.Payload) string {
	if p.Sandplay != nil {
		return sandplayOpening
	}
	return cardOpening
}

// PrimingContext builds the hidden message that seeds a fresh stateful
// conversation with the payload. It is never displayed and never stored.
func PrimingContext(p types.Payload) string {
	if p.Sandplay != nil {
		return sandplayContext(p.Sandplay)
	}
	if p.Cards != nil {
		return cardContext(p.Cards)
	}
	return ""
}

func cardContext(c *types.CardCombination) string {
	desc := c.Image.Description
	if desc == "" {
		desc = fmt.Sprintf("图画卡 %s", c.Image.ID)
	}
	return fmt.Sprintf(`[系统事件] 用户抽到了两张卡片：
1. 图画卡描述：%s
2. 文字卡内容：%s

请基于这个组合，开始引导用户进行联想。请先询问用户看到这个组合的第一感觉是什么。`, desc, c.Word.Text)
}

func sandplayContext(sp *types.SandplaySnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[系统事件] 用户完成了一次沙盘摆放。\n场景：%s\n摆放的物件：\n", sp.SceneID)
	for _, toy := range sp.Toys {
		fmt.Fprintf(&b, "- %s（位置 x=%.2f, y=%.2f）", toy.Name, toy.X, toy.Y)
		if toy.Label != "" {
			fmt.Fprintf(&b, "，用户标注：%s", toy.Label)
		}
		b.WriteString("\n")
	}
	if sp.Description != "" {
		fmt.Fprintf(&b, "用户对沙盘的描述：%s\n", sp.Description)
	}
	b.WriteString("\n请基于这个沙盘，开始引导用户进行联想。请先询问用户完成摆放后的第一感觉是什么。")
	return b.String()
}

// Title derives the denormalized display label a session keeps forever.
func Title(p types.Payload, at time.Time) string {
	label := "沙盘"
	switch {
	case p.Cards != nil:
		label = p.Cards.Word.Text
	case p.Sandplay != nil && p.Sandplay.Description != "":
		label = p.Sandplay.Description
	case p.Sandplay != nil && p.Sandplay.SceneID != "":
		label = p.Sandplay.SceneID
	}
	return fmt.Sprintf("%s - %s", label, at.Format("15:04"))
}

// wordQuestions maps word cards to suggested follow-up questions, taken
// from the OH-card questioning handbook.
var wordQuestions = map[string][]string{
	"感情": {"你怎么解释\"感情\"这两个字？", "提到\"感情\"你会联想到什么事件/东西/人？", "如果用一个画面或颜色来形容\"感情\"，那是什么？"},
	"孤独": {"回想一个关于\"孤独\"的经验", "如何用正面角度描述\"孤独\"？", "怎么让自己不觉得\"孤独\"是困扰？"},
	"恐惧": {"你觉得\"恐惧\"的背后是什么？", "如何利用\"恐惧\"让自己达成目标？", "什么会让你觉得\"恐惧\"？"},
	"希望": {"你觉得\"希望\"的背后是什么？", "你最\"不希望\"发生什么？", "如果有人说\"我看到了你的希望\"，你觉得他看见了什么？"},
	"改变": {"\"改变\"的成功关键因素是什么？", "主动改变和被动改变，给你什么不同的感受？", "你生命中还有哪些部分希望\"改变\"？"},
	"家":  {"描述一个你理想的家", "回想一个关于想回家/不想回家的经验", "要达成理想的家的状态，你需要做些什么？"},
	"梦想": {"梦想破灭时，会有什么感受？", "没有梦想有什么好处/坏处？", "如果有人说\"放手去追求你的梦想吧\"，你觉得他是谁？"},
	"父亲": {"你理想的\"父亲\"是怎样的？", "你有哪些特质与你的父亲类似？", "什么样的人不适合当父亲？"},
	"母亲": {"描述一个10分母亲的特征", "你与母亲最像的是？你对这部分有什么感受？", "想象一下，你正和母亲在一起，有什么感觉？"},
	"成功": {"你认为\"成功\"的关键要素有哪些？", "如何让自己\"成功\"？", "成功对你意味着什么？"},
	"失败": {"怎么让自己不觉得\"失败\"？", "回想一个关于\"失败\"的经验", "失败教会了你什么？"},
}

// WordQuestions returns suggested prompts for a word card, with generic
// fallbacks for words outside the handbook.
func WordQuestions(word string) []string {
	if qs, ok := wordQuestions[word]; ok {
		return qs
	}
	return []string{
		fmt.Sprintf("你怎么解释\"%s\"这个词？", word),
		fmt.Sprintf("提到\"%s\"你会联想到什么？", word),
		fmt.Sprintf("如果用一个画面来形容\"%s\"，那是什么？", word),
	}
}
