package platform

import (
	"encoding/json"
	"time"

	"github.com/ottlabs/apptokens"
	oerrors "github.com/ottlabs/apptokens/pkg/errors"
)

// notFoundCodes are the API exception codes that mean the referenced token
// does not exist on the platform.
var notFoundCodes = map[string]struct{}{
	"APP_TOKEN_ID_NOT_FOUND": {},
	"INVALID_OBJECT_ID":      {},
}

type apiException struct {
	ObjectType string `json:"objectType"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// decodeAPIException probes a response body for the platform's error
// envelope. The API answers HTTP 200 for rejected operations, so errors
// are detected by object type rather than status code.
func decodeAPIException(body []byte) error {
	var envelope apiException
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if envelope.ObjectType != "KalturaAPIException" && envelope.ObjectType != "APIException" {
		return nil
	}

	message := "platform: " + envelope.Message + " (" + envelope.Code + ")"
	if _, ok := notFoundCodes[envelope.Code]; ok {
		return oerrors.New(oerrors.CodeNotFound, message)
	}
	return oerrors.New(oerrors.CodeUnknown, message)
}

type wireToken struct {
	ID                string `json:"id"`
	PartnerID         int    `json:"partnerId"`
	Token             string `json:"token"`
	Description       string `json:"description"`
	SessionPrivileges string `json:"sessionPrivileges"`
	SessionType       int    `json:"sessionType"`
	HashType          string `json:"hashType"`
	Status            int    `json:"status"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

func (w wireToken) toAppToken() apptokens.AppToken {
	return apptokens.AppToken{
		ID:                w.ID,
		PartnerID:         w.PartnerID,
		Description:       w.Description,
		EncodedPrivileges: w.SessionPrivileges,
		SessionType:       apptokens.SessionType(w.SessionType),
		HashType:          w.HashType,
		Status:            apptokens.TokenStatus(w.Status),
		CreatedAt:         unixTime(w.CreatedAt),
		UpdatedAt:         unixTime(w.UpdatedAt),
	}
}

type wireTokenList struct {
	Objects    []wireToken `json:"objects"`
	TotalCount int         `json:"totalCount"`
}

type wireWidgetSession struct {
	KS        string `json:"ks"`
	PartnerID int    `json:"partnerId"`
}

type wireSessionInfo struct {
	KS          string `json:"ks"`
	PartnerID   int    `json:"partnerId"`
	UserID      string `json:"userId"`
	Expiry      int64  `json:"expiry"`
	SessionType int    `json:"sessionType"`
	Privileges  string `json:"privileges"`
}

func (w wireSessionInfo) toSession() apptokens.Session {
	return apptokens.Session{
		KS:        w.KS,
		PartnerID: w.PartnerID,
		UserID:    w.UserID,
		ExpiresAt: unixTime(w.Expiry),
	}
}

func unixTime(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}
