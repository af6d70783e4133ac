package subscription

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
)

func signBody(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_BareHex(t *testing.T) {
	payload := []byte(`{"foo":"bar"}`)
	secret := "top-secret"

	validSig := signBody(t, payload, secret)
	if !VerifyWebhookSignature(payload, validSig, secret) {
		t.Fatal("expected signature to validate")
	}
	if VerifyWebhookSignature(payload, "deadbeef", secret) {
		t.Fatal("expected invalid signature to fail")
	}
	if VerifyWebhookSignature(payload, validSig, "other-secret") {
		t.Fatal("expected wrong secret to fail")
	}
}

func TestVerifyWebhookSignature_SignedHeaderForm(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	secret := "whsec_test"
	ts := int64(1700000000)

	signed := append([]byte(fmt.Sprintf("%d.", ts)), payload...)
	header := fmt.Sprintf("t=%d,v1=%s", ts, signBody(t, signed, secret))

	if !VerifyWebhookSignature(payload, header, secret) {
		t.Fatal("expected t=,v1= signature to validate")
	}
	// Wrong timestamp changes the signed message.
	badHeader := fmt.Sprintf("t=%d,v1=%s", ts+1, signBody(t, signed, secret))
	if VerifyWebhookSignature(payload, badHeader, secret) {
		t.Fatal("expected mismatched timestamp to fail")
	}
}

func TestVerifyWebhookSignature_TamperedBody(t *testing.T) {
	payload := []byte(`{"amount":100}`)
	secret := "top-secret"
	sig := signBody(t, payload, secret)

	tampered := append([]byte(nil), payload...)
	tampered[10] ^= 0x01

	if VerifyWebhookSignature(tampered, sig, secret) {
		t.Fatal("a tampered byte must fail verification even with the original signature")
	}
}

func TestVerifyWebhookSignature_EmptyInputs(t *testing.T) {
	if VerifyWebhookSignature([]byte("x"), "", "secret") {
		t.Fatal("empty signature must fail")
	}
	if VerifyWebhookSignature([]byte("x"), "abcd", "") {
		t.Fatal("empty secret must fail")
	}
	if VerifyWebhookSignature([]byte("x"), "not-hex!", "secret") {
		t.Fatal("non-hex signature must fail")
	}
}
