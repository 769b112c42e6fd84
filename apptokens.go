package apptokens

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
	"github.com/ottlabs/apptokens/pkg/hash"
	"github.com/ottlabs/apptokens/pkg/privilege"
)

type Config struct {
	Platform Platform
	Codec    *privilege.Codec
	Hasher   hash.TokenHasher
	Logger   logr.Logger
}

// Client orchestrates one lifecycle action per call against the remote
// platform: create, start-session, update, delete, list. It holds no state
// between calls beyond its collaborators.
type Client struct {
	platform Platform
	codec    *privilege.Codec
	hasher   hash.TokenHasher
	logger   logr.Logger
}

func New(config Config) (*Client, error) {
	if config.Platform == nil {
		return nil, oerrors.ErrMissingPlatform
	}

	if config.Codec == nil {
		config.Codec = privilege.NewCodec(nil)
	}
	if config.Hasher == nil {
		hasher, err := hash.New(hash.TypeSHA256)
		if err != nil {
			return nil, err
		}
		config.Hasher = hasher
	}

	return &Client{
		platform: config.Platform,
		codec:    config.Codec,
		hasher:   config.Hasher,
		logger:   resolveLogger(config.Logger),
	}, nil
}

func (c *Client) Codec() *privilege.Codec {
	return c.codec
}

// Create builds the token on the remote platform from spec. The spec's
// privileges become the token's encoded privilege string; an absent set is
// sent as absence so the platform applies its defaults.
func (c *Client) Create(ctx context.Context, spec TokenSpec) (AppToken, error) {
	encoded := ""
	if set, ok := spec.Privileges(); ok {
		var err error
		encoded, err = c.codec.Encode(set)
		if err != nil {
			return AppToken{}, err
		}
	}

	description, _ := spec.Description()
	token, err := c.platform.CreateToken(ctx, CreateTokenRequest{
		Description:            description,
		EncodedPrivileges:      encoded,
		SessionType:            SessionTypeUser,
		HashType:               string(c.hasher.Type()),
		SessionDurationSeconds: spec.SessionDurationSeconds(),
	})
	if err != nil {
		return AppToken{}, wrapRemote(err, oerrors.CodeCreationFailed, "apptokens: failed to create app token")
	}

	c.logger.V(1).Info("created app token", "id", token.ID, "privileges", token.EncodedPrivileges)
	return token, nil
}

// StartSession exchanges token for an ephemeral session. The token's secret
// is fetched through a dedicated call since creation responses do not carry
// it; the proof hash binds the secret to an unprivileged widget session.
func (c *Client) StartSession(ctx context.Context, token AppToken, spec TokenSpec) (Session, error) {
	if token.ID == "" {
		return Session{}, oerrors.New(oerrors.CodeSessionStartFailed, "apptokens: token has not been created")
	}

	encoded := ""
	if set, ok := spec.SessionPrivileges(); ok {
		var err error
		encoded, err = c.codec.Encode(set)
		if err != nil {
			return Session{}, err
		}
	}

	widgetSession, err := c.platform.StartWidgetSession(ctx)
	if err != nil {
		return Session{}, wrapRemote(err, oerrors.CodeSessionStartFailed, "apptokens: failed to start bootstrap session")
	}

	secret, err := c.platform.GetTokenSecret(ctx, token.ID)
	if err != nil {
		return Session{}, wrapRemote(err, oerrors.CodeSessionStartFailed, "apptokens: failed to fetch token secret")
	}

	hasher, err := c.hasherFor(token.HashType)
	if err != nil {
		return Session{}, err
	}
	tokenHash, err := hasher.Sum(widgetSession, secret)
	if err != nil {
		return Session{}, oerrors.Wrap(oerrors.CodeSessionStartFailed, "apptokens: failed to compute token hash", err)
	}

	session, err := c.platform.StartSession(ctx, StartSessionRequest{
		TokenID:           token.ID,
		SessionToken:      widgetSession,
		TokenHash:         tokenHash,
		EncodedPrivileges: encoded,
		DurationSeconds:   spec.SessionDurationSeconds(),
	})
	if err != nil {
		return Session{}, wrapRemote(err, oerrors.CodeSessionStartFailed, "apptokens: failed to start token session")
	}

	c.logger.V(1).Info("started token session", "token_id", token.ID, "expires_at", session.ExpiresAt)
	return session, nil
}

// Update patches the token identified by id. Read-modify-write against the
// fetched snapshot: the delta's privileges are merged over the decoded
// current set, so partial updates behave as a patch. There is no optimistic
// concurrency check; concurrent updates race and the later write wins.
func (c *Client) Update(ctx context.Context, id string, delta TokenSpec) (AppToken, error) {
	current, err := c.platform.GetToken(ctx, id)
	if err != nil {
		return AppToken{}, wrapRemote(err, oerrors.CodeUpdateFailed, "apptokens: failed to fetch app token", oerrors.CodeNotFound)
	}

	req := UpdateTokenRequest{}
	if description, ok := delta.Description(); ok {
		req.Description = &description
	}
	set, hasSet := delta.Privileges()
	appendSet, hasAppend := delta.AppendPrivileges()
	if hasSet || hasAppend {
		currentSet, err := c.codec.Decode(current.EncodedPrivileges)
		if err != nil {
			return AppToken{}, err
		}
		merged := c.codec.Merge(currentSet, set)
		for name, value := range appendSet {
			merged[name] = privilege.Append(merged[name], value)
		}
		encoded, err := c.codec.Encode(merged)
		if err != nil {
			return AppToken{}, err
		}
		req.EncodedPrivileges = &encoded
	}

	updated, err := c.platform.UpdateToken(ctx, id, req)
	if err != nil {
		return AppToken{}, wrapRemote(err, oerrors.CodeUpdateFailed, "apptokens: failed to update app token", oerrors.CodeNotFound)
	}

	c.logger.V(1).Info("updated app token", "id", updated.ID)
	return updated, nil
}

// Delete removes the token. A second delete of the same id surfaces
// CodeNotFound, which callers should treat as terminal success: the token
// is gone either way.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.platform.DeleteToken(ctx, id); err != nil {
		return wrapRemote(err, oerrors.CodeDeleteFailed, "apptokens: failed to delete app token", oerrors.CodeNotFound)
	}

	c.logger.V(1).Info("deleted app token", "id", id)
	return nil
}

// List returns a lazy iterator over the partner's current token set. Each
// call performs fresh remote reads; nothing is cached and the iterator is
// not restartable.
func (c *Client) List(ctx context.Context) *TokenIterator {
	return &TokenIterator{
		ctx:      ctx,
		platform: c.platform,
		pageSize: defaultListPageSize,
		nextPage: 1,
	}
}

// hasherFor selects the digest matching the token's declared hash type.
// Tokens created through this client carry the configured algorithm, but a
// token created elsewhere may declare a different one and its proof hash
// must be computed with that.
func (c *Client) hasherFor(hashType string) (hash.TokenHasher, error) {
	if hashType == "" || strings.EqualFold(hashType, string(c.hasher.Type())) {
		return c.hasher, nil
	}
	hasher, err := hash.New(hash.Type(strings.ToUpper(hashType)))
	if err != nil {
		return nil, oerrors.Wrap(oerrors.CodeSessionStartFailed, "apptokens: token declares unsupported hash type "+hashType, err)
	}
	return hasher, nil
}

// wrapRemote assigns the operation's failure code to a remote error.
// Transport failures and any code listed in passthrough keep their own
// classification.
func wrapRemote(err error, code oerrors.Code, message string, passthrough ...oerrors.Code) error {
	got := oerrors.CodeOf(err)
	if got == oerrors.CodeTransport {
		return err
	}
	for _, keep := range passthrough {
		if got == keep {
			return err
		}
	}
	return oerrors.Wrap(code, message, err)
}
