package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginRetainsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "5551234", body["phone"])
		require.Equal(t, "hunter2", body["password"])

		json.NewEncoder(w).Encode(AuthResponse{
			User:  User{ID: "u1", Phone: "5551234", Amount: "100"},
			Token: "session-token",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.Login(context.Background(), "5551234", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "u1", resp.User.ID)
	require.Equal(t, "session-token", client.Token())
}

func TestAuthenticatedCallsCarryBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		require.Equal(t, "/users/profile", r.URL.Path)
		json.NewEncoder(w).Encode(User{ID: "u1", PalmVerified: true})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithToken("session-token"))
	user, err := client.Profile(context.Background())
	require.NoError(t, err)
	require.True(t, user.PalmVerified)
}

func TestVerifyPalmUsesWireSpelling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/verify-palm", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// The deployed field name is misspelled; it is the compatibility
		// surface.
		require.Equal(t, "PALM_1_abc", body["plam_code"])
		json.NewEncoder(w).Encode(VerifyPalmResult{Message: "Palm verified", User: User{PalmVerified: true}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithToken("tok"))
	res, err := client.VerifyPalm(context.Background(), "PALM_1_abc")
	require.NoError(t, err)
	require.Equal(t, "Palm verified", res.Message)
}

func TestOrderCarriesPalmCodeHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orders", r.URL.Path)
		require.Equal(t, "PALM_1_abcdefghi", r.Header.Get(HeaderPalmCode))

		var params OrderParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.Equal(t, int64(12), params.Amount)
		require.Equal(t, map[string]int{"coffee": 2}, params.Items)

		json.NewEncoder(w).Encode(OrderResult{Order: Order{ID: "order-1", Amount: "12"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithToken("tok"))
	res, err := client.CreateOrder(context.Background(), OrderParams{
		Amount:      12,
		Description: "Store purchase of 1 items",
		Items:       map[string]int{"coffee": 2},
	}, "PALM_1_abcdefghi")
	require.NoError(t, err)
	require.Equal(t, "order-1", res.Order.ID)
}

func TestTopupOmitsHeaderWithoutCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[http.CanonicalHeaderKey(HeaderPalmCode)]
		require.False(t, present)
		json.NewEncoder(w).Encode(TopupResult{User: User{Amount: "150"}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithToken("tok"))
	res, err := client.Topup(context.Background(), 50, "")
	require.NoError(t, err)
	require.Equal(t, "150", res.User.Amount)
}

func TestInsufficientBalanceCarriesFigures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error":          "Insufficient balance",
			"currentBalance": 5,
			"requiredAmount": 7,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithToken("tok"))
	_, err := client.CreateOrder(context.Background(), OrderParams{Amount: 7}, "PALM_x")

	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectInsufficientBalance, rej.Reason)
	require.Equal(t, int64(5), rej.CurrentBalance)
	require.Equal(t, int64(7), rej.RequiredAmount)
}

func TestRejectionClassification(t *testing.T) {
	cases := []struct {
		message string
		reason  RejectReason
	}{
		{"Insufficient balance", RejectInsufficientBalance},
		{"Invalid palm code", RejectInvalidCode},
		{"Palm not verified", RejectNotVerified},
		{"Something else entirely", RejectGeneric},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": tc.message})
		}))

		client := NewClient(srv.URL)
		_, err := client.Topup(context.Background(), 10, "PALM_x")

		var rej *RejectionError
		require.ErrorAs(t, err, &rej, tc.message)
		require.Equal(t, tc.reason, rej.Reason, tc.message)
		require.Equal(t, tc.message, rej.Message)
		srv.Close()
	}
}

func TestNonJSONFailureFallsBackToGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.OrderHistory(context.Background())

	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	require.Equal(t, RejectGeneric, rej.Reason)
	require.Equal(t, http.StatusBadGateway, rej.Status)
}

func TestNetworkFailureIsNotARejection(t *testing.T) {
	client := NewClient("http://127.0.0.1:0")
	_, err := client.OrderHistory(context.Background())
	require.Error(t, err)

	var rej *RejectionError
	require.False(t, errors.As(err, &rej))
}
