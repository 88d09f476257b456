package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"strings"
)

// Encoding selects how the raw HMAC digest is rendered.
type Encoding int

const (
	// Wrapped is standard base64 split into 76 character lines, every line
	// terminated by '\n'.
	Wrapped Encoding = iota
	// NoWrap is standard base64 on a single line.
	NoWrap
)

const wrapWidth = 76

var ErrUnsupportedEncoding = errors.New("unsupported signature encoding")

// Sign returns the HMAC-SHA1 of message keyed with secret, encoded per enc.
func Sign(message, secret string, enc Encoding) (string, error) {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(message))
	raw := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	switch enc {
	case NoWrap:
		return raw, nil
	case Wrapped:
		return wrap(raw), nil
	default:
		return "", ErrUnsupportedEncoding
	}
}

func wrap(s string) string {
	var b strings.Builder
	for len(s) > wrapWidth {
		b.WriteString(s[:wrapWidth])
		b.WriteByte('\n')
		s = s[wrapWidth:]
	}
	b.WriteString(s)
	b.WriteByte('\n')
	return b.String()
}
