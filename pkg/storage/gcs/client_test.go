package gcs

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"
)

func mustGenerateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	return key
}

func TestSignedURLSuccess(t *testing.T) {
	t.Parallel()

	key := mustGenerateKey(t)
	client := &Client{
		defaultBucket: "bucket",
		signerEmail:   "signer@example.com",
		signerKey:     key,
	}

	object := "uploads/products/file.png"
	contentType := "image/png"
	expires := time.Now().Add(5 * time.Minute)
	urlStr, err := client.SignedURL("bucket", object, http.MethodPut, contentType, expires)
	if err != nil {
		t.Fatalf("SignedURL returned error: %v", err)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}

	if !strings.EqualFold(parsed.Host, "storage.googleapis.com") {
		t.Fatalf("unexpected host %s", parsed.Host)
	}

	values := parsed.Query()
	if got := values.Get("GoogleAccessId"); got != "signer@example.com" {
		t.Fatalf("unexpected GoogleAccessId %q", got)
	}

	expireParam := values.Get("Expires")
	if expireParam == "" {
		t.Fatal("Expires missing")
	}
	if _, err := strconv.ParseInt(expireParam, 10, 64); err != nil {
		t.Fatalf("parse expires: %v", err)
	}

	signature := values.Get("Signature")
	if signature == "" {
		t.Fatal("signature missing")
	}

	data := []byte("PUT\n\n" + contentType + "\n" + expireParam + "\n/bucket/" + object)
	hash := sha256.Sum256(data)

	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], rawSig); err != nil {
		t.Fatalf("verify signature: %v", err)
	}
}

func TestSignedURLDefaultsToGet(t *testing.T) {
	t.Parallel()

	key := mustGenerateKey(t)
	client := &Client{
		defaultBucket: "bucket",
		signerEmail:   "signer@example.com",
		signerKey:     key,
	}

	object := "uploads/imports/archive.zip"
	expires := time.Now().Add(5 * time.Minute)
	urlStr, err := client.SignedURL("", object, "", "", expires)
	if err != nil {
		t.Fatalf("SignedURL returned error: %v", err)
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		t.Fatalf("parse signed url: %v", err)
	}
	values := parsed.Query()
	expireParam := values.Get("Expires")
	signature := values.Get("Signature")
	if expireParam == "" || signature == "" {
		t.Fatal("expected Expires and Signature params")
	}

	data := []byte("GET\n\n\n" + expireParam + "\n/bucket/" + object)
	hash := sha256.Sum256(data)
	rawSig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	if err := rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, hash[:], rawSig); err != nil {
		t.Fatalf("verify signature: %v", err)
	}
}

func TestSignedURLErrors(t *testing.T) {
	t.Parallel()

	client := &Client{
		defaultBucket: "bucket",
		signerEmail:   "signer@example.com",
		signerKey:     mustGenerateKey(t),
	}

	if _, err := client.SignedURL("bucket", "", http.MethodGet, "", time.Now().Add(time.Minute)); err == nil {
		t.Fatal("expected error for missing object")
	}

	unsignable := &Client{defaultBucket: "bucket"}
	if _, err := unsignable.SignedURL("bucket", "object", http.MethodGet, "", time.Now().Add(time.Minute)); err == nil {
		t.Fatal("expected error without service account key")
	}
}

type roundTripFunc func(*http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func staticTokenClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	return &Client{
		defaultBucket: "bucket",
		tokenSource: &tokenSource{fetch: func(context.Context) (string, time.Time, error) {
			return "token", time.Now().Add(time.Hour), nil
		}},
		httpClient: &http.Client{Transport: rt},
	}
}

func TestDownloadObjectSuccess(t *testing.T) {
	t.Parallel()

	client := staticTokenClient(t, func(req *http.Request) *http.Response {
		if req.Header.Get("Authorization") != "Bearer token" {
			t.Fatalf("unexpected auth %s", req.Header.Get("Authorization"))
		}
		if !strings.Contains(req.URL.RawQuery, "alt=media") {
			t.Fatalf("expected media download, got %s", req.URL.String())
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader("payload")),
			Header:     http.Header{},
		}
	})

	body, err := client.DownloadObject(context.Background(), "bucket", "uploads/file.png")
	if err != nil {
		t.Fatalf("DownloadObject: %v", err)
	}
	if string(body) != "payload" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestDeleteObjectSuccess(t *testing.T) {
	t.Parallel()

	client := staticTokenClient(t, func(req *http.Request) *http.Response {
		if req.Method != http.MethodDelete {
			t.Fatalf("expected DELETE, got %s", req.Method)
		}
		return &http.Response{
			StatusCode: http.StatusNoContent,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}
	})

	if err := client.DeleteObject(context.Background(), "bucket", "uploads/file.png"); err != nil {
		t.Fatalf("DeleteObject: %v", err)
	}
}

func TestDeleteObjectNotFound(t *testing.T) {
	t.Parallel()

	client := staticTokenClient(t, func(req *http.Request) *http.Response {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader("")),
			Header:     http.Header{},
		}
	})

	if err := client.DeleteObject(context.Background(), "bucket", "uploads/file.png"); err != nil {
		t.Fatalf("DeleteObject not found should succeed: %v", err)
	}
}
