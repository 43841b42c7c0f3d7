package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lesson-enrollment/pkg/gateway"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSign(t *testing.T) {
	c := gateway.NewClient("http://example.invalid", "mid001", "secret", zap.NewNop())

	sig := c.Sign("20260715120000", 40000)

	assert.Len(t, sig, 64)
	assert.Equal(t, sig, c.Sign("20260715120000", 40000))
	assert.NotEqual(t, sig, c.Sign("20260715120000", 40001))
	assert.NotEqual(t, sig, c.Sign("20260715120001", 40000))
}

func TestVerifyNotification(t *testing.T) {
	c := gateway.NewClient("http://example.invalid", "mid001", "secret", zap.NewNop())
	sig := c.Sign("20260715120000", 40000)

	assert.True(t, c.VerifyNotification("20260715120000", 40000, sig))
	assert.True(t, c.VerifyNotification("20260715120000", 40000, strings.ToUpper(sig)))
	assert.False(t, c.VerifyNotification("20260715120000", 40000, "deadbeef"))
	assert.False(t, c.VerifyNotification("20260715120000", 39999, sig))
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("successful cancel returns the response", func(t *testing.T) {
		var received gateway.CancelRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/payments/cancel", r.URL.Path)
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			json.NewEncoder(w).Encode(gateway.CancelResponse{
				ResultCode: "2001",
				ResultMsg:  "cancel approved",
				Tid:        received.Tid,
				CancelAmt:  received.CancelAmt,
			})
		}))
		defer srv.Close()

		c := gateway.NewClient(srv.URL, "mid001", "secret", zap.NewNop())
		resp, err := c.Cancel(ctx, "tid-1", "enroll_5_1", 24500, true, "user request")

		assert.NoError(t, err)
		assert.Equal(t, 24500, resp.CancelAmt)
		assert.Equal(t, "tid-1", received.Tid)
		assert.Equal(t, "mid001", received.Mid)
		assert.True(t, received.PartialCancel)
		assert.NotEmpty(t, received.EncData)
	})

	t.Run("non-success code is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(gateway.CancelResponse{
				ResultCode: "2010",
				ResultMsg:  "already canceled",
			})
		}))
		defer srv.Close()

		c := gateway.NewClient(srv.URL, "mid001", "secret", zap.NewNop())
		resp, err := c.Cancel(ctx, "tid-1", "enroll_5_1", 24500, false, "")

		assert.Nil(t, resp)
		var gwErr *gateway.Error
		assert.ErrorAs(t, err, &gwErr)
		assert.Equal(t, gateway.KindRejected, gwErr.Kind)
		assert.Equal(t, "2010", gwErr.Code)
	})

	t.Run("HTTP error is a transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := gateway.NewClient(srv.URL, "mid001", "secret", zap.NewNop())
		_, err := c.Cancel(ctx, "tid-1", "enroll_5_1", 24500, false, "")

		var gwErr *gateway.Error
		assert.ErrorAs(t, err, &gwErr)
		assert.Equal(t, gateway.KindTransport, gwErr.Kind)
	})

	t.Run("unreachable gateway is a transport failure", func(t *testing.T) {
		c := gateway.NewClient("http://127.0.0.1:1", "mid001", "secret", zap.NewNop())
		_, err := c.Cancel(ctx, "tid-1", "enroll_5_1", 24500, false, "")

		var gwErr *gateway.Error
		assert.ErrorAs(t, err, &gwErr)
		assert.Equal(t, gateway.KindTransport, gwErr.Kind)
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the transaction state", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/payments/query", r.URL.Path)
			json.NewEncoder(w).Encode(gateway.QueryResponse{
				ResultCode: "0000",
				Tid:        "tid-1",
				Amt:        40000,
				PayStatus:  "PAID",
			})
		}))
		defer srv.Close()

		c := gateway.NewClient(srv.URL, "mid001", "secret", zap.NewNop())
		resp, err := c.Query(ctx, "tid-1")

		assert.NoError(t, err)
		assert.Equal(t, 40000, resp.Amt)
		assert.Equal(t, "PAID", resp.PayStatus)
	})

	t.Run("unknown transaction is a rejection", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(gateway.QueryResponse{ResultCode: "9999", ResultMsg: "no such tid"})
		}))
		defer srv.Close()

		c := gateway.NewClient(srv.URL, "mid001", "secret", zap.NewNop())
		resp, err := c.Query(ctx, "missing")

		assert.Nil(t, resp)
		var gwErr *gateway.Error
		assert.ErrorAs(t, err, &gwErr)
		assert.Equal(t, gateway.KindRejected, gwErr.Kind)
	})
}
