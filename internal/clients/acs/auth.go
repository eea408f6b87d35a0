package acs

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrInvalidConnectionString = errors.New("invalid connection string")

// credential is the endpoint and shared access key of a Communication
// Services resource.
type credential struct {
	endpoint *url.URL
	key      []byte
}

// parseConnectionString reads "endpoint=https://...;accesskey=base64key".
func parseConnectionString(connectionString string) (credential, error) {
	var endpoint, accessKey string
	for _, part := range strings.Split(connectionString, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(name) {
		case "endpoint":
			endpoint = value
		case "accesskey":
			accessKey = value
		}
	}
	if endpoint == "" || accessKey == "" {
		return credential{}, fmt.Errorf("%w: endpoint and accesskey are required", ErrInvalidConnectionString)
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return credential{}, fmt.Errorf("%w: bad endpoint %q", ErrInvalidConnectionString, endpoint)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	key, err := base64.StdEncoding.DecodeString(accessKey)
	if err != nil {
		return credential{}, fmt.Errorf("%w: access key is not base64: %v", ErrInvalidConnectionString, err)
	}

	return credential{endpoint: u, key: key}, nil
}

// sign adds the HMAC-SHA256 authorization headers to req. body must be the
// exact bytes sent.
func (c credential) sign(req *http.Request, body []byte, now time.Time) {
	sum := sha256.Sum256(body)
	contentHash := base64.StdEncoding.EncodeToString(sum[:])
	date := now.UTC().Format(http.TimeFormat)

	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-content-sha256", contentHash)
	req.Header.Set("Authorization", fmt.Sprintf(
		"HMAC-SHA256 SignedHeaders=x-ms-date;host;x-ms-content-sha256&Signature=%s",
		c.signature(req.Method, req.URL.RequestURI(), date, req.URL.Host, contentHash),
	))
}

func (c credential) signature(method, pathAndQuery, date, host, contentHash string) string {
	stringToSign := fmt.Sprintf("%s\n%s\n%s;%s;%s", strings.ToUpper(method), pathAndQuery, date, host, contentHash)
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
