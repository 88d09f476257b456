package signing

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the HTTP date used in both the Date header and the signed
// payload.
const DateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

const publicACLLine = "x-amz-acl:public-read\n"

// ObjectRequest holds the inputs of an object storage signature.
type ObjectRequest struct {
	Method      string
	MD5         string
	ContentType string
	Date        string
	Bucket      string
	Key         string
	Public      bool
}

// HTTPDate formats t for ObjectRequest.Date.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// StringToSign renders the canonical payload. GET requests carry neither a
// digest nor a content type, and only PUTs may carry the ACL line.
func (r ObjectRequest) StringToSign() string {
	var b strings.Builder

	b.WriteString(r.Method)
	b.WriteByte('\n')
	if r.Method != "GET" {
		b.WriteString(r.MD5)
		b.WriteByte('\n')
		b.WriteString(r.ContentType)
		b.WriteByte('\n')
	} else {
		b.WriteString("\n\n")
	}
	b.WriteString(r.Date)
	b.WriteByte('\n')
	if r.Public && r.Method == "PUT" {
		b.WriteString(publicACLLine)
	}
	b.WriteString("/" + r.Bucket + "/" + r.Key)

	return b.String()
}

// Authorization signs r and returns the header value "AWS key:signature".
func Authorization(accessKey, secret string, r ObjectRequest) (string, error) {
	sig, err := Sign(r.StringToSign(), secret, NoWrap)
	if err != nil {
		return "", fmt.Errorf("failed to sign object request: %w", err)
	}
	return "AWS " + accessKey + ":" + sig, nil
}
