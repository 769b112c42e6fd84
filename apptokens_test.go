package apptokens

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
	"github.com/ottlabs/apptokens/pkg/privilege"
)

type fakePlatform struct {
	tokens  map[string]AppToken
	secrets map[string]string
	nextID  int

	widgetSession string

	lastCreate  CreateTokenRequest
	lastUpdate  UpdateTokenRequest
	lastSession StartSessionRequest

	listCalls int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		tokens:        map[string]AppToken{},
		secrets:       map[string]string{},
		widgetSession: "widget-session-ks",
	}
}

func (f *fakePlatform) CreateToken(ctx context.Context, req CreateTokenRequest) (AppToken, error) {
	f.lastCreate = req
	f.nextID++

	token := AppToken{
		ID:                fmt.Sprintf("0_tok%04d", f.nextID),
		Description:       req.Description,
		EncodedPrivileges: req.EncodedPrivileges,
		SessionType:       req.SessionType,
		HashType:          req.HashType,
		Status:            TokenStatusActive,
		CreatedAt:         time.Now().UTC(),
	}
	f.tokens[token.ID] = token
	f.secrets[token.ID] = "secret-" + token.ID
	return token, nil
}

func (f *fakePlatform) GetToken(ctx context.Context, id string) (AppToken, error) {
	token, ok := f.tokens[id]
	if !ok {
		return AppToken{}, oerrors.New(oerrors.CodeNotFound, "app token not found")
	}
	return token, nil
}

func (f *fakePlatform) GetTokenSecret(ctx context.Context, id string) (string, error) {
	secret, ok := f.secrets[id]
	if !ok {
		return "", oerrors.New(oerrors.CodeNotFound, "app token not found")
	}
	return secret, nil
}

func (f *fakePlatform) UpdateToken(ctx context.Context, id string, req UpdateTokenRequest) (AppToken, error) {
	f.lastUpdate = req

	token, ok := f.tokens[id]
	if !ok {
		return AppToken{}, oerrors.New(oerrors.CodeNotFound, "app token not found")
	}
	if req.Description != nil {
		token.Description = *req.Description
	}
	if req.EncodedPrivileges != nil {
		token.EncodedPrivileges = *req.EncodedPrivileges
	}
	token.UpdatedAt = time.Now().UTC()
	f.tokens[id] = token
	return token, nil
}

func (f *fakePlatform) DeleteToken(ctx context.Context, id string) error {
	if _, ok := f.tokens[id]; !ok {
		return oerrors.New(oerrors.CodeNotFound, "app token not found")
	}
	delete(f.tokens, id)
	delete(f.secrets, id)
	return nil
}

func (f *fakePlatform) ListTokens(ctx context.Context, page ListPage) (TokenPage, error) {
	f.listCalls++

	ids := make([]string, 0, len(f.tokens))
	for id := range f.tokens {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := (page.Index - 1) * page.Size
	end := start + page.Size
	if start > len(ids) {
		start = len(ids)
	}
	if end > len(ids) {
		end = len(ids)
	}

	out := TokenPage{TotalCount: len(ids)}
	for _, id := range ids[start:end] {
		out.Tokens = append(out.Tokens, f.tokens[id])
	}
	return out, nil
}

func (f *fakePlatform) StartWidgetSession(ctx context.Context) (string, error) {
	return f.widgetSession, nil
}

func (f *fakePlatform) StartSession(ctx context.Context, req StartSessionRequest) (Session, error) {
	f.lastSession = req

	secret, ok := f.secrets[req.TokenID]
	if !ok {
		return Session{}, oerrors.New(oerrors.CodeNotFound, "app token not found")
	}

	if req.TokenHash != f.proofHash(f.tokens[req.TokenID].HashType, req.SessionToken+secret) {
		return Session{}, oerrors.New(oerrors.CodeSessionStartFailed, "invalid token hash")
	}

	duration := req.DurationSeconds
	if duration == 0 {
		duration = 86400
	}
	return Session{
		KS:        "privileged-ks-" + req.TokenID,
		ExpiresAt: time.Now().UTC().Add(time.Duration(duration) * time.Second),
	}, nil
}

// proofHash mirrors the platform's hash check per the token's declared
// algorithm. An empty type behaves as SHA256, matching real token defaults.
func (f *fakePlatform) proofHash(hashType, payload string) string {
	switch strings.ToUpper(hashType) {
	case "SHA1":
		raw := sha1.Sum([]byte(payload))
		return hex.EncodeToString(raw[:])
	default:
		raw := sha256.Sum256([]byte(payload))
		return hex.EncodeToString(raw[:])
	}
}

func newTestClient(t *testing.T, platform Platform) *Client {
	t.Helper()
	client, err := New(Config{Platform: platform})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	return client
}

func TestNewRequiresPlatform(t *testing.T) {
	if _, err := New(Config{}); err != oerrors.ErrMissingPlatform {
		t.Fatalf("expected ErrMissingPlatform, got %v", err)
	}
}

func TestCreateEncodesPrivileges(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	spec, _, err := NewSpecBuilder(client.Codec()).
		Description("My App Token").
		Privilege(privilege.NameEdit, privilege.Wildcard()).
		BuildCreate()
	if err != nil {
		t.Fatalf("build spec failed: %v", err)
	}

	token, err := client.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if token.ID == "" {
		t.Fatal("expected a non-empty token id")
	}
	if platform.lastCreate.EncodedPrivileges != "edit:*" {
		t.Fatalf("platform received %q, want %q", platform.lastCreate.EncodedPrivileges, "edit:*")
	}
	if platform.lastCreate.Description != "My App Token" {
		t.Fatalf("platform received description %q", platform.lastCreate.Description)
	}
	if platform.lastCreate.HashType != "SHA256" {
		t.Fatalf("platform received hash type %q", platform.lastCreate.HashType)
	}
}

func TestCreateWithoutPrivilegesSendsAbsence(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	spec, _, err := NewSpecBuilder(client.Codec()).Description("defaults").BuildCreate()
	if err != nil {
		t.Fatalf("build spec failed: %v", err)
	}

	if _, err := client.Create(context.Background(), spec); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if platform.lastCreate.EncodedPrivileges != "" {
		t.Fatalf("absent privileges must encode to absence, got %q", platform.lastCreate.EncodedPrivileges)
	}
}

func TestUpdateDescriptionOnlyLeavesPrivileges(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	created, err := platform.CreateToken(context.Background(), CreateTokenRequest{
		Description:       "before",
		EncodedPrivileges: "iprestrict:10.0.0.1,edit:*",
	})
	if err != nil {
		t.Fatalf("seed token failed: %v", err)
	}

	delta, _, err := NewSpecBuilder(client.Codec()).Description("Updated Description").BuildDelta()
	if err != nil {
		t.Fatalf("build delta failed: %v", err)
	}

	updated, err := client.Update(context.Background(), created.ID, delta)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	if platform.lastUpdate.EncodedPrivileges != nil {
		t.Fatalf("privileges must be omitted from the payload, got %q", *platform.lastUpdate.EncodedPrivileges)
	}
	if updated.Description != "Updated Description" {
		t.Fatalf("description not updated: %q", updated.Description)
	}
	if updated.EncodedPrivileges != "iprestrict:10.0.0.1,edit:*" {
		t.Fatalf("privileges changed by description-only update: %q", updated.EncodedPrivileges)
	}
}

func TestUpdateMergesPrivilegesAsPatch(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	created, err := platform.CreateToken(context.Background(), CreateTokenRequest{
		Description:       "patch me",
		EncodedPrivileges: "iprestrict:10.0.0.1,futurething:abc",
	})
	if err != nil {
		t.Fatalf("seed token failed: %v", err)
	}

	delta, _, err := NewSpecBuilder(client.Codec()).
		Privilege(privilege.NameEdit, privilege.Wildcard()).
		BuildDelta()
	if err != nil {
		t.Fatalf("build delta failed: %v", err)
	}

	updated, err := client.Update(context.Background(), created.ID, delta)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// Patch semantics: existing clauses survive, including the clause the
	// codec does not recognize.
	if updated.EncodedPrivileges != "iprestrict:10.0.0.1,edit:*,futurething:abc" {
		t.Fatalf("unexpected merged privileges: %q", updated.EncodedPrivileges)
	}
}

func TestUpdateAppendsToURIList(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	created, err := platform.CreateToken(context.Background(), CreateTokenRequest{
		Description:       "uri scoped",
		EncodedPrivileges: "urirestrict:/api_v3/service/media/action/*",
	})
	if err != nil {
		t.Fatalf("seed token failed: %v", err)
	}

	delta, _, err := NewSpecBuilder(client.Codec()).
		AppendPrivilege(privilege.NameURIRestrict, privilege.Strings(
			"/api_v3/service/media/action/*",
			"/api_v3/service/playlist/action/*",
		)).
		BuildDelta()
	if err != nil {
		t.Fatalf("build delta failed: %v", err)
	}

	updated, err := client.Update(context.Background(), created.ID, delta)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// Existing URIs survive, the new one is concatenated, duplicates are
	// dropped.
	want := "urirestrict:/api_v3/service/media/action/*|/api_v3/service/playlist/action/*"
	if updated.EncodedPrivileges != want {
		t.Fatalf("appended privileges = %q, want %q", updated.EncodedPrivileges, want)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	client := newTestClient(t, newFakePlatform())

	delta, _, err := NewSpecBuilder(client.Codec()).Description("x").BuildDelta()
	if err != nil {
		t.Fatalf("build delta failed: %v", err)
	}

	_, err = client.Update(context.Background(), "missing", delta)
	if !oerrors.IsCode(err, oerrors.CodeNotFound) {
		t.Fatalf("expected not-found code, got %v", err)
	}
}

func TestDeleteTwiceSurfacesNotFound(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	created, err := platform.CreateToken(context.Background(), CreateTokenRequest{Description: "doomed"})
	if err != nil {
		t.Fatalf("seed token failed: %v", err)
	}

	if err := client.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("first delete failed: %v", err)
	}

	err = client.Delete(context.Background(), created.ID)
	if !oerrors.IsCode(err, oerrors.CodeNotFound) {
		t.Fatalf("second delete must surface not-found, got %v", err)
	}
}

func TestStartSessionOnFreshToken(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	spec, _, err := NewSpecBuilder(client.Codec()).
		Description("session token").
		SessionPrivilege(privilege.NameSview, privilege.Wildcard()).
		SessionDuration(600).
		BuildCreate()
	if err != nil {
		t.Fatalf("build spec failed: %v", err)
	}

	token, err := client.Create(context.Background(), spec)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	session, err := client.StartSession(context.Background(), token, spec)
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if session.KS == "" {
		t.Fatal("expected a session string")
	}

	if platform.lastSession.EncodedPrivileges != "sview:*" {
		t.Fatalf("session privileges not encoded: %q", platform.lastSession.EncodedPrivileges)
	}
	if platform.lastSession.DurationSeconds != 600 {
		t.Fatalf("session duration not forwarded: %d", platform.lastSession.DurationSeconds)
	}
}

func TestStartSessionHonorsTokenHashType(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	// A token created elsewhere may declare a different digest than the
	// client's configured one; its proof hash must be computed with it.
	created, err := platform.CreateToken(context.Background(), CreateTokenRequest{
		Description: "legacy sha1 token",
		HashType:    "SHA1",
	})
	if err != nil {
		t.Fatalf("seed token failed: %v", err)
	}

	spec, _, err := NewSpecBuilder(client.Codec()).BuildDelta()
	if err != nil {
		t.Fatalf("build spec failed: %v", err)
	}

	session, err := client.StartSession(context.Background(), created, spec)
	if err != nil {
		t.Fatalf("start session failed: %v", err)
	}
	if session.KS == "" {
		t.Fatal("expected a session string")
	}
}

func TestStartSessionRejectsUnsupportedHashType(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	created, err := platform.CreateToken(context.Background(), CreateTokenRequest{
		Description: "bad digest",
		HashType:    "CRC32",
	})
	if err != nil {
		t.Fatalf("seed token failed: %v", err)
	}

	spec, _, err := NewSpecBuilder(client.Codec()).BuildDelta()
	if err != nil {
		t.Fatalf("build spec failed: %v", err)
	}

	_, err = client.StartSession(context.Background(), created, spec)
	if !oerrors.IsCode(err, oerrors.CodeSessionStartFailed) {
		t.Fatalf("expected session-start code, got %v", err)
	}
}

func TestStartSessionOnUncreatedToken(t *testing.T) {
	client := newTestClient(t, newFakePlatform())

	spec, _, err := NewSpecBuilder(client.Codec()).BuildDelta()
	if err != nil {
		t.Fatalf("build spec failed: %v", err)
	}

	_, err = client.StartSession(context.Background(), AppToken{}, spec)
	if !oerrors.IsCode(err, oerrors.CodeSessionStartFailed) {
		t.Fatalf("expected session-start code, got %v", err)
	}

	// A non-empty id the platform has never seen fails the same way.
	_, err = client.StartSession(context.Background(), AppToken{ID: "0_never"}, spec)
	if !oerrors.IsCode(err, oerrors.CodeSessionStartFailed) {
		t.Fatalf("expected session-start code, got %v", err)
	}
}

func TestListWalksPages(t *testing.T) {
	platform := newFakePlatform()
	client := newTestClient(t, platform)

	for i := 0; i < 7; i++ {
		if _, err := platform.CreateToken(context.Background(), CreateTokenRequest{Description: fmt.Sprintf("token %d", i)}); err != nil {
			t.Fatalf("seed token failed: %v", err)
		}
	}

	it := client.List(context.Background())
	it.pageSize = 3

	var seen []string
	for it.Next() {
		seen = append(seen, it.Token().ID)
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration failed: %v", err)
	}

	if len(seen) != 7 {
		t.Fatalf("expected 7 tokens, got %d", len(seen))
	}
	if platform.listCalls != 3 {
		t.Fatalf("expected 3 page fetches, got %d", platform.listCalls)
	}

	// Exhausted iterators stay exhausted.
	if it.Next() {
		t.Fatal("iterator restarted after exhaustion")
	}
}

func TestListEmpty(t *testing.T) {
	client := newTestClient(t, newFakePlatform())

	it := client.List(context.Background())
	if it.Next() {
		t.Fatal("expected no tokens")
	}
	if err := it.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
