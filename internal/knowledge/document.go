package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Metadata keys carried by every stored chunk.
const (
	MetaSource     = "source"
	MetaSourceType = "source_type"
	MetaSessionID  = "session_id"
	MetaMessageID  = "message_id"
	MetaMessageDT  = "message_date"
	MetaIngestedOn = "ingested_on"
	MetaLanguage   = "language"
	MetaHash       = "hash"
)

// Source types.
const (
	SourceTypeMessage = "message"
	SourceTypeURL     = "url"
	SourceTypeFile    = "file"
)

// Document is a unit of text with provenance metadata. Both raw inputs and
// split chunks are documents; chunks copy the parent's metadata.
type Document struct {
	Content  string
	Metadata map[string]string
}

// NewDocument builds a document with its own metadata map.
func NewDocument(content string, metadata map[string]string) Document {
	m := make(map[string]string, len(metadata))
	for k, v := range metadata {
		m[k] = v
	}
	return Document{Content: content, Metadata: m}
}

// CloneMetadata returns a copy of the document metadata.
func (d Document) CloneMetadata() map[string]string {
	m := make(map[string]string, len(d.Metadata))
	for k, v := range d.Metadata {
		m[k] = v
	}
	return m
}

// SessionID composes the per-user, per-chat bucket key.
func SessionID(userID, chatID string) string {
	return fmt.Sprintf("%s-%s", userID, chatID)
}

// HashContent returns the content-addressed dedup key for a source text.
// Hashed before splitting so re-ingesting the same source replaces all of
// its chunks at once.
func HashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
