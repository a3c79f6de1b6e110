// Package token implements the reversible codec between deep-link start
// parameters and the payload they carry. A token is the payload's wire form
// encoded as unpadded URL-safe base64, so it can sit in a t.me link without
// any additional escaping. Everything else in the system deals only in
// decoded payloads.
package token

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned for any token that Encode could not have
// produced. Callers match it with errors.Is.
var ErrMalformed = errors.New("malformed token")

// Payload is the tagged union of everything a token can carry.
type Payload interface {
	// wire returns the cleartext form embedded in the token.
	wire() string
}

// FilePayload references a single stored file by record id.
type FilePayload struct {
	ID string
}

// BatchPayload references an ordered group of stored files.
type BatchPayload struct {
	ID string
}

// LegacyPayload carries the integers of a previously issued range link. Each
// integer is a channel message id multiplied by the storage channel id
// magnitude; the resolver undoes that arithmetic. New links are never minted
// in this shape.
type LegacyPayload struct {
	Parts []int64
}

func (p FilePayload) wire() string  { return filePrefix + p.ID }
func (p BatchPayload) wire() string { return batchPrefix + p.ID }

func (p LegacyPayload) wire() string {
	elems := make([]string, 0, len(p.Parts)+1)
	elems = append(elems, legacyPrefix)
	for _, n := range p.Parts {
		elems = append(elems, strconv.FormatInt(n, 10))
	}
	return strings.Join(elems, "-")
}

const (
	filePrefix   = "file_"
	batchPrefix  = "batch_"
	legacyPrefix = "get"
)

// Encode turns a payload into an opaque URL-safe token.
func Encode(p Payload) string {
	return encodeBase64(p.wire())
}

// Decode reverses Encode. Tokens that were not produced by Encode fail with
// ErrMalformed; Decode never returns an unrelated error.
func Decode(tok string) (Payload, error) {
	wire, err := decodeBase64(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformed, err)
	}
	return parseWire(wire)
}

func parseWire(wire string) (Payload, error) {
	switch {
	case strings.HasPrefix(wire, filePrefix):
		id := strings.TrimPrefix(wire, filePrefix)
		if id == "" {
			return nil, fmt.Errorf("%w: empty file id", ErrMalformed)
		}
		return FilePayload{ID: id}, nil
	case strings.HasPrefix(wire, batchPrefix):
		id := strings.TrimPrefix(wire, batchPrefix)
		if id == "" {
			return nil, fmt.Errorf("%w: empty batch id", ErrMalformed)
		}
		return BatchPayload{ID: id}, nil
	case strings.HasPrefix(wire, legacyPrefix+"-"):
		return parseLegacy(wire)
	default:
		return nil, fmt.Errorf("%w: unknown payload shape", ErrMalformed)
	}
}

func parseLegacy(wire string) (Payload, error) {
	elems := strings.Split(wire, "-")
	// "get-<n>" or "get-<n>-<n>"; anything else was never issued.
	if len(elems) != 2 && len(elems) != 3 {
		return nil, fmt.Errorf("%w: legacy payload has %d segments", ErrMalformed, len(elems))
	}
	parts := make([]int64, 0, len(elems)-1)
	for _, e := range elems[1:] {
		n, err := strconv.ParseInt(e, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: legacy segment %q is not numeric", ErrMalformed, e)
		}
		parts = append(parts, n)
	}
	return LegacyPayload{Parts: parts}, nil
}
