package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/joseph-ayodele/zero-paper-user/internal/common"
	"github.com/joseph-ayodele/zero-paper-user/internal/transport"
)

const (
	maxJSONBody    = 1 << 20
	maxReceiptBody = 16 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func writeFieldsError(w http.ResponseWriter, message string, fields []string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": message, "fields": fields})
}

func writeValidation(w http.ResponseWriter, v *common.Validator) {
	writeFieldsError(w, "Missing or invalid fields: "+strings.Join(v.Fields(), ", "), v.Fields())
}

func writeUnauthorized(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, "Authorization header is required")
}

// relay copies an upstream answer. 2xx JSON passes through untouched;
// 2xx text becomes {success, message}; everything else becomes {error}.
func relay(w http.ResponseWriter, resp *transport.Response) {
	body := resp.Body
	if !resp.OK() {
		writeError(w, resp.StatusCode, common.ExtractMessage(body, resp.StatusCode))
		return
	}
	if resp.StatusCode == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeJSON(w, resp.StatusCode, map[string]any{"success": true})
		return
	}
	if gjson.ValidBytes(body) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
		return
	}
	writeJSON(w, resp.StatusCode, map[string]any{"success": true, "message": strings.TrimSpace(string(body))})
}

var errBodyTooLarge = errors.New("request body too large")

// decodeObject reads a JSON object body.
func decodeObject(w http.ResponseWriter, r *http.Request, limit int64) (map[string]any, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	doc := map[string]any{}
	if len(strings.TrimSpace(string(b))) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("body must be a JSON object")
	}
	return doc, nil
}

func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// str reads a string field; non-strings count as missing.
func str(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return strings.TrimSpace(s)
}
