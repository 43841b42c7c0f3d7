package request

import (
	"encoding/json"
	"net/http"
	"strings"
)

// KispgNotification is the form-encoded payload the gateway posts to
// the webhook endpoint.
type KispgNotification struct {
	Mid        string
	Tid        string
	Moid       string
	Amt        string
	EdiDate    string
	EncData    string
	ResultCode string
	ResultMsg  string
	PayMethod  string
	// MbsReserved is an opaque passthrough field set at payment
	// request time. It carries the user's locker and membership
	// choices for the late-bound flow.
	MbsReserved string
}

func ParseKispgNotification(r *http.Request) (*KispgNotification, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}

	return &KispgNotification{
		Mid:         r.PostFormValue("mid"),
		Tid:         r.PostFormValue("tid"),
		Moid:        r.PostFormValue("moid"),
		Amt:         r.PostFormValue("amt"),
		EdiDate:     r.PostFormValue("ediDate"),
		EncData:     r.PostFormValue("encData"),
		ResultCode:  r.PostFormValue("resultCode"),
		ResultMsg:   r.PostFormValue("resultMsg"),
		PayMethod:   r.PostFormValue("payMethod"),
		MbsReserved: r.PostFormValue("mbsReserved"),
	}, nil
}

// MbsReservedPayload is the JSON side channel inside MbsReserved.
type MbsReservedPayload struct {
	WantsLocker    bool   `json:"wantsLocker"`
	MembershipType string `json:"membershipType"`
}

func (n *KispgNotification) ParseMbsReserved() *MbsReservedPayload {
	raw := strings.TrimSpace(n.MbsReserved)
	if raw == "" {
		return nil
	}
	var payload MbsReservedPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	return &payload
}
