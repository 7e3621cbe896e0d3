package entity

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// User is the cached profile returned by login. Raw keeps the full document
// since the backend may add fields we do not model.
type User struct {
	UID   string          `json:"uid"`
	Email string          `json:"email"`
	Name  string          `json:"name,omitempty"`
	Raw   json.RawMessage `json:"-"`
}

// LoginData is what a successful login hands to the session.
type LoginData struct {
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	User         json.RawMessage `json:"data,omitempty"`
}

// UserFromJSON reads a user document, accepting the id spellings the backend
// has used (uid, id, _id, userId).
func UserFromJSON(raw []byte) User {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return User{}
	}
	doc := gjson.ParseBytes(raw)
	u := User{
		Email: doc.Get("email").String(),
		Name:  doc.Get("name").String(),
		Raw:   json.RawMessage(raw),
	}
	for _, key := range []string{"uid", "id", "_id", "userId"} {
		if v := doc.Get(key); v.Exists() && v.String() != "" {
			u.UID = v.String()
			break
		}
	}
	return u
}
