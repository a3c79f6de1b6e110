package token

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"
)

// The bot has historically issued links whose parameter is URL-safe base64
// with the trailing "=" padding stripped. Decoding accepts the padded form
// too, since some shortener frontends re-add it.

func encodeBase64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func decodeBase64(tok string) (string, error) {
	if tok == "" {
		return "", errors.New("empty token")
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(tok, "="))
	if err != nil {
		return "", errors.New("not base64")
	}
	if !utf8.Valid(raw) {
		return "", errors.New("payload is not text")
	}
	return string(raw), nil
}
