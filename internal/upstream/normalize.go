package upstream

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/zero-paper-user/internal/entity"
)

var (
	tokenPaths   = []string{"token", "accessToken", "access_token", "data.token", "data.accessToken", "data.access_token"}
	refreshPaths = []string{"refreshToken", "refresh_token", "data.refreshToken", "data.refresh_token"}
	userPaths    = []string{"user", "data.user", "data"}
)

func firstString(doc gjson.Result, paths []string) string {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// NormalizeLogin reads the token, refresh token and user document from a
// login response, whichever spelling the backend used. ok is false when no
// token was present.
func NormalizeLogin(body []byte) (entity.LoginData, bool) {
	if !gjson.ValidBytes(body) {
		return entity.LoginData{}, false
	}
	doc := gjson.ParseBytes(body)
	out := entity.LoginData{
		Token:        firstString(doc, tokenPaths),
		RefreshToken: firstString(doc, refreshPaths),
	}
	for _, p := range userPaths {
		if v := doc.Get(p); v.Exists() && v.IsObject() {
			out.User = json.RawMessage(v.Raw)
			break
		}
	}
	return out, out.Token != ""
}

// NormalizeReceipts decodes a receipt list that may be a bare array or
// wrapped in data / receipts.
func NormalizeReceipts(body []byte) ([]entity.Receipt, error) {
	raw := body
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		if !doc.IsArray() {
			for _, p := range []string{"data", "receipts", "data.receipts"} {
				if v := doc.Get(p); v.Exists() && v.IsArray() {
					raw = []byte(v.Raw)
					break
				}
			}
		}
	}
	var out []entity.Receipt
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeImage extracts the base64 payload of an image response, which the
// backend returns either as a bare JSON string, a raw body, or an object.
func NormalizeImage(body []byte) string {
	if gjson.ValidBytes(body) {
		doc := gjson.ParseBytes(body)
		if doc.Type == gjson.String {
			return doc.String()
		}
		for _, p := range []string{"image", "base64", "imageBase64", "data.image", "data"} {
			if v := doc.Get(p); v.Exists() && v.Type == gjson.String {
				return v.String()
			}
		}
		return ""
	}
	return string(body)
}
