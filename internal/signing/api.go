package signing

import (
	"fmt"
	"net/url"
	"time"
)

const (
	// TimestampLayout is the textual form of the ts parameter, always in GMT.
	TimestampLayout = "2006/01/02 15:04:05"

	ParamTimestamp = "ts"
	ParamSignature = "h"
)

// Timestamp formats t for the ts parameter.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// SignQuery appends ts and h to an already encoded query string. The
// signature covers every byte that precedes "&h=".
func SignQuery(query, secret string, now time.Time) (string, error) {
	canonical := ParamTimestamp + "=" + url.QueryEscape(Timestamp(now))
	if query != "" {
		canonical = query + "&" + canonical
	}

	sig, err := Sign(canonical, secret, Wrapped)
	if err != nil {
		return "", fmt.Errorf("failed to sign query: %w", err)
	}

	return canonical + "&" + ParamSignature + "=" + url.QueryEscape(sig), nil
}
