package client

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/zero-paper-user/constants"
)

// readAsDataURL loads a receipt image and returns it as a base64 data URL.
func readAsDataURL(path string) (string, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	mt, ok := constants.AllowedImageExtensions[ext]
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", ext)
	}
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if st.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if st.Size() > constants.MaxImageBytes {
		return "", fmt.Errorf("image is %d bytes, limit is %d", st.Size(), constants.MaxImageBytes)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if byExt := mime.TypeByExtension("." + ext); byExt != "" {
		mt = byExt
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// DecodeImage accepts a data URL or bare base64 and returns the bytes and,
// when the data URL names one, the MIME type.
func DecodeImage(s string) ([]byte, string, error) {
	mt := ""
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		mt, _, _ = strings.Cut(meta, ";")
		s = payload
	}
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return b, mt, nil
}
