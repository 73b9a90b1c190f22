package models

// User is the directory view of an account: just enough to render a chat
// list and to recognize the reserved automated account.
type User struct {
	ID       string `bson:"_id,omitempty" json:"id"`
	Username string `bson:"username" json:"username"`
	Avatar   string `bson:"avatar,omitempty" json:"avatar,omitempty"`
}
