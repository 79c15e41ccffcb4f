package params

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// DomainCacheKey prefixes derived cache keys. The version suffix leaves room
// for a future encoding change without colliding with old keys.
const DomainCacheKey = "sproc/cache-key/v1"

// canonicalParam is the serialized shape of one parameter in a derived key.
type canonicalParam struct {
	Name  string `json:"name"`
	Type  Type   `json:"type"`
	Value any    `json:"value"`
}

// DeriveKey computes a content-addressed cache key for s:
//
//	SHA256(DomainCacheKey + 0x00 + canonical JSON of {name, params})
//
// Parameter values are bound first, so two Sets that would send the same
// arguments to the server derive the same key. Strings are NFC-normalized.
func DeriveKey(s Set) (string, error) {
	ps := make([]canonicalParam, 0, len(s.params))
	for _, p := range s.params {
		v, err := p.Bind()
		if err != nil {
			return "", fmt.Errorf("derive key: %w", err)
		}
		if str, ok := v.(string); ok {
			v = norm.NFC.String(str)
		}
		ps = append(ps, canonicalParam{Name: p.Name, Type: p.Type, Value: v})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(struct {
		Name   string           `json:"name"`
		Params []canonicalParam `json:"params"`
	}{Name: norm.NFC.String(s.QualifiedName()), Params: ps}); err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return hashWithDomain(DomainCacheKey, bytes.TrimSpace(buf.Bytes())), nil
}

// hashWithDomain computes SHA-256 with domain separation.
// The null byte prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
