package devserver

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/fieldsync/internal/signing"
)

const (
	headerACL     = "x-amz-acl"
	aclPublicRead = "public-read"
)

func (s *Server) verifyObject(r *http.Request, req signing.ObjectRequest) (int, string) {
	if s.opts.AccessKey == "" {
		return 0, ""
	}
	if s.opts.Bucket != "" && req.Bucket != s.opts.Bucket {
		return http.StatusNotFound, "no such bucket"
	}

	want, err := signing.Authorization(s.opts.AccessKey, s.opts.SecretKey, req)
	if err != nil {
		return http.StatusInternalServerError, err.Error()
	}
	if !hmac.Equal([]byte(r.Header.Get("Authorization")), []byte(want)) {
		return http.StatusForbidden, "signature does not match"
	}
	return 0, ""
}

func (s *Server) handlePutObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req := signing.ObjectRequest{
		Method:      http.MethodPut,
		MD5:         r.Header.Get("Content-MD5"),
		ContentType: r.Header.Get("Content-Type"),
		Date:        r.Header.Get("Date"),
		Bucket:      vars["bucket"],
		Key:         vars["key"],
		Public:      r.Header.Get(headerACL) == aclPublicRead,
	}
	if code, msg := s.verifyObject(r, req); code != 0 {
		respondError(w, code, msg)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	sum := md5.Sum(body)
	if req.MD5 != "" && req.MD5 != base64.StdEncoding.EncodeToString(sum[:]) {
		respondError(w, http.StatusBadRequest, "bad digest")
		return
	}

	s.mu.Lock()
	failure := s.putFailure
	if failure == 0 {
		s.objects[req.Key] = Object{
			Key:         req.Key,
			ContentType: req.ContentType,
			Public:      req.Public,
			MD5Hex:      hex.EncodeToString(sum[:]),
			Body:        body,
		}
		s.puts[req.Key]++
	}
	s.mu.Unlock()

	if failure != 0 {
		respondError(w, failure, "injected failure")
		return
	}

	w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:])+`"`)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	req := signing.ObjectRequest{
		Method: http.MethodGet,
		Date:   r.Header.Get("Date"),
		Bucket: vars["bucket"],
		Key:    vars["key"],
	}

	s.mu.Lock()
	o, ok := s.objects[req.Key]
	s.mu.Unlock()

	// public objects are readable without a signature
	if !ok || !o.Public {
		if code, msg := s.verifyObject(r, req); code != 0 {
			respondError(w, code, msg)
			return
		}
	}
	if !ok {
		respondError(w, http.StatusNotFound, "no such key")
		return
	}

	w.Header().Set("Content-Type", o.ContentType)
	w.Header().Set("ETag", `"`+o.MD5Hex+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(o.Body)
}
