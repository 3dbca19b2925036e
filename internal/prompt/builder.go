package prompt

import (
	"strings"

	"github.com/drx3/drx-backend/pkg/llm"
)

// historyWindow is how many prior turns are forwarded to the provider.
const historyWindow = 6

// defaultSystemPrompt is the built-in drx3 persona used when the caller
// does not supply one.
const defaultSystemPrompt = `أنت drx3، مساعد ذكي متخصص في الذكاء الاصطناعي والبرمجة والتكنولوجيا.

خصائصك:
- خبير في Python، JavaScript، الذكاء الاصطناعي، والتعلم الآلي
- تجيب باللغة العربية بشكل أساسي مع دعم الإنجليزية عند الحاجة
- تقدم إجابات منظمة ومفصلة ومفيدة
- تستخدم التنسيق المناسب (عناوين، قوائم، كود)
- تشرح المفاهيم بطريقة واضحة ومنطقية

إرشادات التنسيق:
- استخدم العناوين (# ## ###) لتنظيم المحتوى
- استخدم القوائم المرقمة والنقطية عند الحاجة
- ضع الكود في صناديق مع تحديد اللغة
- استخدم النص الغامق للنقاط المهمة
- نظم الإجابة بشكل هرمي وواضح`

// One fixed instructional sentence per behavior flag, appended in this
// order: thinking, search, RAG.
const (
	thinkingInstruction = "\n- فكر خطوة بخطوة قبل الإجابة وأظهر عملية التفكير"
	searchInstruction   = "\n- ابحث في معرفتك بعمق للحصول على أفضل إجابة شاملة"
	ragInstruction      = "\n- استخدم قاعدة المعرفة المتاحة للحصول على معلومات دقيقة ومحدثة"
)

// Builder constructs the outgoing message sequence for the providers
type Builder struct{}

// NewBuilder creates a new prompt builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Compose builds the message sequence: one system message, the last few
// history turns verbatim (earliest first), then the new user message.
// No total-length truncation is performed here; very long histories are
// passed through as-is and may be rejected upstream.
func (b *Builder) Compose(settings llm.Settings, history []llm.ChatMessage, message string) []llm.ChatMessage {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]llm.ChatMessage, 0, len(history)+2)

	messages = append(messages, llm.ChatMessage{
		Role:    "system",
		Content: b.buildSystemPrompt(settings),
	})

	for _, msg := range history {
		messages = append(messages, llm.ChatMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	messages = append(messages, llm.ChatMessage{
		Role:    "user",
		Content: message,
	})

	return messages
}

// buildSystemPrompt picks the base persona and appends one instruction
// line per enabled behavior flag.
func (b *Builder) buildSystemPrompt(settings llm.Settings) string {
	var sb strings.Builder
	sb.Grow(1024)

	if settings.SystemPrompt != "" {
		sb.WriteString(settings.SystemPrompt)
	} else {
		sb.WriteString(defaultSystemPrompt)
	}

	if settings.EnableThinking {
		sb.WriteString(thinkingInstruction)
	}
	if settings.EnableSearch {
		sb.WriteString(searchInstruction)
	}
	if settings.EnableRAG {
		sb.WriteString(ragInstruction)
	}

	return sb.String()
}
