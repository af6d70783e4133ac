package subscription

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// VerifyWebhookSignature checks the Provider-Signature header against the
// raw, unparsed body bytes. The header is either the provider's
// "t=<unix>,v1=<hex>" form (the HMAC then covers "<t>.<body>") or a bare hex
// HMAC-SHA256 of the body. Any re-serialization of the body breaks the
// signature, which is the point.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" || secret == "" {
		return false
	}

	if ts, candidates, ok := parseSignedHeader(sig); ok {
		signed := append([]byte(strconv.FormatInt(ts, 10)+"."), payload...)
		for _, c := range candidates {
			if verifyHMACSHA256(signed, c, []byte(secret)) {
				return true
			}
		}
		return false
	}

	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMACSHA256(payload, decoded, []byte(secret))
}

// parseSignedHeader splits "t=1234,v1=abcd,v1=..." into its timestamp and
// candidate signatures.
func parseSignedHeader(header string) (int64, [][]byte, bool) {
	if !strings.Contains(header, "=") || !strings.Contains(header, ",") {
		return 0, nil, false
	}

	var ts int64 = -1
	var candidates [][]byte
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			v, err := strconv.ParseInt(kv[1], 10, 64)
			if err != nil {
				return 0, nil, false
			}
			ts = v
		case "v1":
			decoded, err := hex.DecodeString(strings.ToLower(kv[1]))
			if err != nil {
				continue
			}
			candidates = append(candidates, decoded)
		}
	}
	if ts < 0 || len(candidates) == 0 {
		return 0, nil, false
	}
	return ts, candidates, true
}

func verifyHMACSHA256(payload, expectedSig, secret []byte) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
