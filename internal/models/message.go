package models

import "time"

// FileInfo records an already-uploaded attachment. Upload itself happens in
// the media service; the chat core only keeps the pointer.
type FileInfo struct {
	URL  string `bson:"url" json:"url"`
	Name string `bson:"name" json:"name"`
	Type string `bson:"type" json:"type"`
	Size int64  `bson:"size" json:"size"`
}

type Message struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	ConversationID string    `bson:"conversation_id" json:"conversation_id"`
	SenderID       string    `bson:"sender_id" json:"sender_id"`
	Text           string    `bson:"text" json:"text"`
	File           *FileInfo `bson:"file,omitempty" json:"file,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	// Seq breaks created_at ties within one process; assigned by the store.
	Seq int64 `bson:"seq" json:"-"`
}
