package payments

import "testing"

func TestVerify_RoundTrip(t *testing.T) {
	v := NewVerifier("shared-secret")
	sig := v.Sign("order_123", "pay_456")
	if !v.Verify("order_123", "pay_456", sig) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerify_Tampered(t *testing.T) {
	v := NewVerifier("shared-secret")
	sig := v.Sign("order_123", "pay_456")
	if v.Verify("order_123", "pay_789", sig) {
		t.Error("signature for different payment must not verify")
	}
	if v.Verify("order_999", "pay_456", sig) {
		t.Error("signature for different order must not verify")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	sig := NewVerifier("secret-a").Sign("order_123", "pay_456")
	if NewVerifier("secret-b").Verify("order_123", "pay_456", sig) {
		t.Error("signature from another secret must not verify")
	}
}

func TestVerify_FailsClosed(t *testing.T) {
	v := NewVerifier("shared-secret")
	if v.Verify("", "pay_456", "deadbeef") {
		t.Error("empty order id must fail")
	}
	if v.Verify("order_123", "", "deadbeef") {
		t.Error("empty payment id must fail")
	}
	if v.Verify("order_123", "pay_456", "") {
		t.Error("empty signature must fail")
	}
	if NewVerifier("").Verify("order_123", "pay_456", "deadbeef") {
		t.Error("empty secret must fail")
	}
}
