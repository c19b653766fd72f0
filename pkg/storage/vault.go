package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Client signs time-limited URLs against an S3-compatible media vault.
// Callers store only the opaque object key; every byte served to a browser
// goes through a signed URL minted here.
type Client struct {
	baseURL   string
	bucket    string
	accessKey string
	secretKey string
	expiresIn time.Duration
}

// NewClient creates a media vault client. baseURL is the storage endpoint,
// e.g. https://<account>.r2.cloudflarestorage.com.
func NewClient(baseURL, bucket, accessKey, secretKey string, expiresIn time.Duration) *Client {
	if expiresIn <= 0 {
		expiresIn = time.Hour
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		bucket:    bucket,
		accessKey: accessKey,
		secretKey: secretKey,
		expiresIn: expiresIn,
	}
}

// ObjectKey builds the storage key for a new upload: the folder, the upload
// timestamp, and the sanitized original filename.
func ObjectKey(folder, fileName string, now time.Time) string {
	safeName := unsafeChars.ReplaceAllString(fileName, "_")
	return fmt.Sprintf("%s/%d-%s", strings.Trim(folder, "/"), now.UnixMilli(), safeName)
}

// UploadURL mints a signed PUT URL for a new object key.
func (c *Client) UploadURL(key, contentType string) (string, error) {
	return c.signedURL("PUT", key, map[string]string{"content-type": contentType})
}

// AccessURL mints a signed GET URL for an existing object key.
func (c *Client) AccessURL(key string) (string, error) {
	return c.signedURL("GET", key, nil)
}

func (c *Client) signedURL(method, key string, extra map[string]string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", fmt.Errorf("object key is required")
	}
	if c.baseURL == "" || c.bucket == "" || c.secretKey == "" {
		return "", fmt.Errorf("media vault signing configuration is missing")
	}

	expires := time.Now().Add(c.expiresIn).Unix()
	objectPath := fmt.Sprintf("/%s/%s", c.bucket, strings.TrimLeft(key, "/"))

	stringToSign := fmt.Sprintf("%s\n%s\n%d", method, objectPath, expires)
	for _, v := range extra {
		stringToSign += "\n" + v
	}

	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(stringToSign))
	signature := base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString(mac.Sum(nil))

	query := url.Values{}
	query.Set("AccessKeyId", c.accessKey)
	query.Set("Expires", fmt.Sprintf("%d", expires))
	query.Set("Signature", signature)
	for k, v := range extra {
		query.Set(k, v)
	}

	return fmt.Sprintf("%s%s?%s", c.baseURL, objectPath, query.Encode()), nil
}
