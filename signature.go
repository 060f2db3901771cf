package drift

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
)

// signRequest computes the HMAC-SHA256 signature carried in the signature
// query parameter when a secret key is configured. The signed message is the
// key pair, the request path, and the canonical query, newline-separated;
// the signature parameter itself is never part of the signed query.
func signRequest(secret, subscribeKey, publishKey, path string, query url.Values) string {
	message := subscribeKey + "\n" + publishKey + "\n" + path + "\n" + query.Encode()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a request signature in constant time. Exported for
// services that relay signed requests and need to validate them.
func VerifySignature(signature, secret, subscribeKey, publishKey, path string, query url.Values) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := signRequest(secret, subscribeKey, publishKey, path, query)
	if len(signature) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
