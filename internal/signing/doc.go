// Package signing computes the HMAC-SHA1 signatures used by the field sync
// protocols.
//
// Two schemes share the same primitive:
//
//   - API requests: the canonical message is the query string, including a
//     freshly generated ts parameter. The signature travels as the trailing h
//     parameter and is encoded with line-wrapped base64.
//   - Object storage: the canonical message is a fixed multi-line template
//     (see ObjectRequest.StringToSign) and the signature is sent as
//     "AWS {accessKey}:{signature}" in the Authorization header, encoded
//     without wrapping.
//
// All functions are pure; the caller supplies the clock value.
package signing
