package loader

import (
	"github.com/ooocheckitout/llm-knowledge-base/internal/knowledge"
)

// Text wraps a raw message into a single document. The source is the message
// id, so re-sending an edited message replaces the previous version.
func Text(content, source string) []knowledge.Document {
	return []knowledge.Document{
		knowledge.NewDocument(content, map[string]string{
			knowledge.MetaSource:     source,
			knowledge.MetaSourceType: knowledge.SourceTypeMessage,
		}),
	}
}
