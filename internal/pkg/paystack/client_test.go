package paystack

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInitialize(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Authorization URL created",
			"data": {
				"authorization_url": "https://checkout.paystack.com/abc123",
				"access_code": "abc123",
				"reference": "ref_001"
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_x"})

	res, err := client.Initialize(context.Background(), InitializeRequest{
		Email:     "buyer@test.com",
		Amount:    5000,
		Reference: "ref_001",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AuthorizationURL != "https://checkout.paystack.com/abc123" {
		t.Fatalf("unexpected authorization url: %s", res.AuthorizationURL)
	}
	if res.Reference != "ref_001" {
		t.Fatalf("unexpected reference: %s", res.Reference)
	}
	if gotAuth != "Bearer sk_test_x" {
		t.Fatalf("unexpected auth header: %s", gotAuth)
	}
}

func TestInitializeValidation(t *testing.T) {
	client := NewClient(Config{SecretKey: "sk_test_x"})

	if _, err := client.Initialize(context.Background(), InitializeRequest{Email: "a@b.c", Reference: "r"}); err == nil {
		t.Fatal("expected error for zero amount")
	}
	if _, err := client.Initialize(context.Background(), InitializeRequest{Amount: 1, Reference: "r"}); err == nil {
		t.Fatal("expected error for empty email")
	}
	if _, err := client.Initialize(context.Background(), InitializeRequest{Amount: 1, Email: "a@b.c"}); err == nil {
		t.Fatal("expected error for empty reference")
	}
}

func TestVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transaction/verify/ref_002" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"status": "success",
				"amount": 5000,
				"reference": "ref_002",
				"metadata": {"buyer_id": "u1"}
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_x"})

	res, err := client.Verify(context.Background(), "ref_002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
	if res.Amount != 5000 {
		t.Fatalf("unexpected amount: %d", res.Amount)
	}
	if res.Metadata["buyer_id"] != "u1" {
		t.Fatalf("unexpected metadata: %v", res.Metadata)
	}
}

func TestVerifyAbandonedIsNotSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": true,
			"message": "Verification successful",
			"data": {
				"status": "abandoned",
				"amount": 5000,
				"reference": "ref_003"
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_x"})

	res, err := client.Verify(context.Background(), "ref_003")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Success {
		t.Fatal("abandoned transaction must not verify as success")
	}
}

func TestVerifyEnvelopeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": false, "message": "Transaction reference not found"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, SecretKey: "sk_test_x"})

	if _, err := client.Verify(context.Background(), "ref_missing"); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
}
