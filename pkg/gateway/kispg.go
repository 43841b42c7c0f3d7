package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Result codes used by the KISPG protocol.
const (
	CodeApproveSuccess = "0000"
	CodeCancelSuccess  = "2001"
)

// ErrorKind separates transport failures from explicit gateway rejections.
type ErrorKind int

const (
	// KindTransport means the gateway could not be reached or answered
	// with garbage. The operation may be retried.
	KindTransport ErrorKind = iota
	// KindRejected means the gateway answered with a non-success
	// result code. Retrying with the same request will not help.
	KindRejected
)

type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kispg: %s: %v", e.Message, e.Err)
	}
	if e.Code != "" {
		return fmt.Sprintf("kispg: %s (code %s)", e.Message, e.Code)
	}
	return "kispg: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

type CancelRequest struct {
	Tid           string `json:"tid"`
	Moid          string `json:"moid"`
	CancelAmt     int    `json:"cancelAmt"`
	PartialCancel bool   `json:"partialCancel"`
	CancelReason  string `json:"cancelReason"`
	EdiDate       string `json:"ediDate"`
	EncData       string `json:"encData"`
	Mid           string `json:"mid"`
}

type CancelResponse struct {
	ResultCode string `json:"resultCode"`
	ResultMsg  string `json:"resultMsg"`
	Tid        string `json:"tid"`
	CancelAmt  int    `json:"cancelAmt"`
}

type QueryResponse struct {
	ResultCode string `json:"resultCode"`
	ResultMsg  string `json:"resultMsg"`
	Tid        string `json:"tid"`
	Moid       string `json:"moid"`
	Amt        int    `json:"amt"`
	PayStatus  string `json:"status"`
}

// Client talks to the KISPG payment gateway over HTTPS.
type Client struct {
	baseURL     string
	merchantID  string
	merchantKey string
	http        *http.Client
	log         *zap.Logger
}

func NewClient(baseURL, merchantID, merchantKey string, log *zap.Logger) *Client {
	return &Client{
		baseURL:     baseURL,
		merchantID:  merchantID,
		merchantKey: merchantKey,
		http:        &http.Client{Timeout: 10 * time.Second},
		log:         log.With(zap.String("gateway", "kispg")),
	}
}

// Sign builds the request hash the gateway expects,
// hex(SHA256(mid + ediDate + amt + merchantKey)).
func (c *Client) Sign(ediDate string, amt int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s%s%d%s", c.merchantID, ediDate, amt, c.merchantKey)))
	return hex.EncodeToString(sum[:])
}

// VerifyNotification checks the encData hash carried by a webhook
// notification against our own signature over the same fields.
func (c *Client) VerifyNotification(ediDate string, amt int, encData string) bool {
	return strings.EqualFold(c.Sign(ediDate, amt), encData)
}

// Cancel requests a refund of cancelAmt against an approved transaction.
func (c *Client) Cancel(ctx context.Context, tid, moid string, cancelAmt int, partial bool, reason string) (*CancelResponse, error) {
	ediDate := time.Now().Format("20060102150405")
	req := CancelRequest{
		Tid:           tid,
		Moid:          moid,
		CancelAmt:     cancelAmt,
		PartialCancel: partial,
		CancelReason:  reason,
		EdiDate:       ediDate,
		EncData:       c.Sign(ediDate, cancelAmt),
		Mid:           c.merchantID,
	}

	var resp CancelResponse
	if err := c.post(ctx, "/v2/payments/cancel", req, &resp); err != nil {
		return nil, err
	}

	if resp.ResultCode != CodeCancelSuccess {
		c.log.Warn("cancel rejected",
			zap.String("tid", tid),
			zap.String("resultCode", resp.ResultCode),
			zap.String("resultMsg", resp.ResultMsg))
		return nil, &Error{Kind: KindRejected, Code: resp.ResultCode, Message: resp.ResultMsg}
	}

	return &resp, nil
}

// Query fetches the gateway-side status of a transaction, used when a
// notification looks suspicious or went missing.
func (c *Client) Query(ctx context.Context, tid string) (*QueryResponse, error) {
	req := map[string]string{"tid": tid, "mid": c.merchantID}

	var resp QueryResponse
	if err := c.post(ctx, "/v2/payments/query", req, &resp); err != nil {
		return nil, err
	}

	if resp.ResultCode != CodeApproveSuccess {
		return nil, &Error{Kind: KindRejected, Code: resp.ResultCode, Message: resp.ResultMsg}
	}

	return &resp, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &Error{Kind: KindTransport, Message: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return &Error{Kind: KindTransport, Message: "call gateway", Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return &Error{Kind: KindTransport, Message: fmt.Sprintf("gateway returned HTTP %d", httpResp.StatusCode)}
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return &Error{Kind: KindTransport, Message: "decode response", Err: err}
	}

	return nil
}
