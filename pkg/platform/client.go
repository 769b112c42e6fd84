package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	cleanhttp "github.com/hashicorp/go-cleanhttp"

	"github.com/ottlabs/apptokens"
	oerrors "github.com/ottlabs/apptokens/pkg/errors"
)

const (
	apiBasePath = "/api_v3/service"

	// responseFormatJSON selects the platform's JSON response envelope.
	responseFormatJSON = "1"

	defaultSessionExpiry = 86400
)

type Config struct {
	ServiceURL      string
	PartnerID       int
	AdminSecret     string
	UserID          string
	SessionExpiry   int
	AdminPrivileges string
	HTTPClient      *http.Client
	Logger          logr.Logger
}

// Client speaks the platform's form-in/JSON-out API surface. It is bound to
// one partner scope and performs exactly one attempt per call; retry policy
// belongs to whoever embeds it.
type Client struct {
	config    Config
	http      *http.Client
	logger    logr.Logger
	clientTag string

	// ks is the admin session attached to privileged calls. Single
	// invocation model, no locking needed.
	ks string
}

func NewClient(config Config) (*Client, error) {
	if config.ServiceURL == "" {
		return nil, oerrors.New(oerrors.CodeConfiguration, "platform: service url is required")
	}
	if config.PartnerID <= 0 {
		return nil, oerrors.New(oerrors.CodeConfiguration, "platform: a positive partner id is required")
	}
	if config.AdminSecret == "" {
		return nil, oerrors.New(oerrors.CodeConfiguration, "platform: admin secret is required")
	}
	if config.SessionExpiry <= 0 {
		config.SessionExpiry = defaultSessionExpiry
	}
	if config.HTTPClient == nil {
		config.HTTPClient = cleanhttp.DefaultPooledClient()
	}
	if config.Logger.GetSink() == nil {
		config.Logger = logr.Discard()
	}

	return &Client{
		config:    config,
		http:      config.HTTPClient,
		logger:    config.Logger,
		clientTag: "apptokens:" + uuid.NewString(),
	}, nil
}

// StartAdminSession authenticates the configured partner with its admin
// secret and pins the resulting session to all subsequent calls. Must run
// before any token operation.
func (c *Client) StartAdminSession(ctx context.Context) error {
	params := url.Values{}
	params.Set("secret", c.config.AdminSecret)
	params.Set("userId", c.config.UserID)
	params.Set("type", strconv.Itoa(int(apptokens.SessionTypeAdmin)))
	params.Set("partnerId", strconv.Itoa(c.config.PartnerID))
	params.Set("expiry", strconv.Itoa(c.config.SessionExpiry))
	params.Set("privileges", c.config.AdminPrivileges)

	var ks string
	if err := c.call(ctx, "session", "start", params, &ks); err != nil {
		return reclassify(err, oerrors.CodeConfiguration, "platform: failed to start admin session")
	}
	if ks == "" {
		return oerrors.New(oerrors.CodeConfiguration, "platform: admin session response was empty")
	}

	c.ks = ks
	c.logger.V(1).Info("started admin session", "partner_id", c.config.PartnerID)
	return nil
}

func (c *Client) CreateToken(ctx context.Context, req apptokens.CreateTokenRequest) (apptokens.AppToken, error) {
	params := url.Values{}
	params.Set("appToken:description", req.Description)
	params.Set("appToken:sessionType", strconv.Itoa(int(req.SessionType)))
	params.Set("appToken:hashType", req.HashType)
	if req.EncodedPrivileges != "" {
		params.Set("appToken:sessionPrivileges", req.EncodedPrivileges)
	}
	if req.SessionDurationSeconds > 0 {
		params.Set("appToken:sessionDuration", strconv.Itoa(req.SessionDurationSeconds))
	}

	var wire wireToken
	if err := c.call(ctx, "appToken", "add", params, &wire); err != nil {
		return apptokens.AppToken{}, reclassify(err, oerrors.CodeCreationFailed, "platform: token creation rejected")
	}
	return wire.toAppToken(), nil
}

func (c *Client) GetToken(ctx context.Context, id string) (apptokens.AppToken, error) {
	wire, err := c.getToken(ctx, id)
	if err != nil {
		return apptokens.AppToken{}, err
	}
	return wire.toAppToken(), nil
}

// GetTokenSecret fetches the token's secret value. Creation and list
// responses omit it, so the session exchange needs this dedicated read.
func (c *Client) GetTokenSecret(ctx context.Context, id string) (string, error) {
	wire, err := c.getToken(ctx, id)
	if err != nil {
		return "", err
	}
	if wire.Token == "" {
		return "", oerrors.New(oerrors.CodeSessionStartFailed, "platform: token secret not available for "+id)
	}
	return wire.Token, nil
}

func (c *Client) getToken(ctx context.Context, id string) (wireToken, error) {
	params := url.Values{}
	params.Set("id", id)

	var wire wireToken
	if err := c.call(ctx, "appToken", "get", params, &wire); err != nil {
		return wireToken{}, reclassify(err, oerrors.CodeUnknown, "platform: failed to fetch app token")
	}
	return wire, nil
}

func (c *Client) UpdateToken(ctx context.Context, id string, req apptokens.UpdateTokenRequest) (apptokens.AppToken, error) {
	params := url.Values{}
	params.Set("id", id)
	if req.Description != nil {
		params.Set("appToken:description", *req.Description)
	}
	if req.EncodedPrivileges != nil {
		params.Set("appToken:sessionPrivileges", *req.EncodedPrivileges)
	}

	var wire wireToken
	if err := c.call(ctx, "appToken", "update", params, &wire); err != nil {
		return apptokens.AppToken{}, reclassify(err, oerrors.CodeUpdateFailed, "platform: token update rejected")
	}
	return wire.toAppToken(), nil
}

func (c *Client) DeleteToken(ctx context.Context, id string) error {
	params := url.Values{}
	params.Set("id", id)

	if err := c.call(ctx, "appToken", "delete", params, nil); err != nil {
		return reclassify(err, oerrors.CodeDeleteFailed, "platform: token deletion rejected")
	}
	return nil
}

func (c *Client) ListTokens(ctx context.Context, page apptokens.ListPage) (apptokens.TokenPage, error) {
	params := url.Values{}
	if page.Index > 0 {
		params.Set("pager:pageIndex", strconv.Itoa(page.Index))
	}
	if page.Size > 0 {
		params.Set("pager:pageSize", strconv.Itoa(page.Size))
	}

	var wire wireTokenList
	if err := c.call(ctx, "appToken", "list", params, &wire); err != nil {
		return apptokens.TokenPage{}, reclassify(err, oerrors.CodeUnknown, "platform: failed to list app tokens")
	}

	out := apptokens.TokenPage{TotalCount: wire.TotalCount}
	for _, token := range wire.Objects {
		out.Tokens = append(out.Tokens, token.toAppToken())
	}
	return out, nil
}

// StartWidgetSession opens the unprivileged session the token hash is
// computed against. The widget id is derived from the partner scope.
func (c *Client) StartWidgetSession(ctx context.Context) (string, error) {
	params := url.Values{}
	params.Set("widgetId", fmt.Sprintf("_%d", c.config.PartnerID))

	var wire wireWidgetSession
	if err := c.call(ctx, "session", "startWidgetSession", params, &wire); err != nil {
		return "", reclassify(err, oerrors.CodeSessionStartFailed, "platform: failed to start widget session")
	}
	if wire.KS == "" {
		return "", oerrors.New(oerrors.CodeSessionStartFailed, "platform: widget session response was empty")
	}
	return wire.KS, nil
}

func (c *Client) StartSession(ctx context.Context, req apptokens.StartSessionRequest) (apptokens.Session, error) {
	params := url.Values{}
	params.Set("id", req.TokenID)
	params.Set("tokenHash", req.TokenHash)
	params.Set("type", strconv.Itoa(int(apptokens.SessionTypeUser)))
	if req.EncodedPrivileges != "" {
		params.Set("sessionPrivileges", req.EncodedPrivileges)
	}
	if req.DurationSeconds > 0 {
		params.Set("expiry", strconv.Itoa(req.DurationSeconds))
	}

	var wire wireSessionInfo
	if err := c.callWithSession(ctx, "appToken", "startSession", params, &wire, req.SessionToken); err != nil {
		return apptokens.Session{}, reclassify(err, oerrors.CodeSessionStartFailed, "platform: token session rejected")
	}
	return wire.toSession(), nil
}

var _ apptokens.Platform = (*Client)(nil)

func (c *Client) call(ctx context.Context, service string, action string, params url.Values, out any) error {
	return c.callWithSession(ctx, service, action, params, out, c.ks)
}

func (c *Client) callWithSession(ctx context.Context, service string, action string, params url.Values, out any, ks string) error {
	endpoint := strings.TrimSuffix(c.config.ServiceURL, "/") + apiBasePath + "/" + service + "/action/" + action

	form := url.Values{}
	for key, values := range params {
		form[key] = values
	}
	form.Set("format", responseFormatJSON)
	form.Set("clientTag", c.clientTag)
	if ks != "" {
		form.Set("ks", ks)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return oerrors.Wrap(oerrors.CodeTransport, "platform: failed to build request", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.http.Do(request)
	if err != nil {
		return oerrors.Wrap(oerrors.CodeTransport, "platform: request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return oerrors.Wrap(oerrors.CodeTransport, "platform: failed to read response", err)
	}

	if apiErr := decodeAPIException(body); apiErr != nil {
		return apiErr
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return oerrors.New(oerrors.CodeTransport, "platform: unexpected status "+response.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return oerrors.Wrap(oerrors.CodeTransport, "platform: malformed response body", err)
	}
	return nil
}

// reclassify assigns the calling operation's failure code to an API-level
// rejection. Not-found and transport classifications pass through so the
// caller sees the real condition.
func reclassify(err error, code oerrors.Code, message string) error {
	switch oerrors.CodeOf(err) {
	case oerrors.CodeNotFound, oerrors.CodeTransport:
		return err
	}
	return oerrors.Wrap(code, message, err)
}
