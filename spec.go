package apptokens

import (
	"strings"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
	"github.com/ottlabs/apptokens/pkg/privilege"
)

// TokenSpec describes a token to create, or the delta to apply on update.
// It is immutable once built; unset fields mean "not provided" and are
// omitted from outgoing payloads rather than sent as empty values.
type TokenSpec struct {
	description            *string
	privileges             *privilege.Set
	appendPrivileges       *privilege.Set
	sessionPrivileges      *privilege.Set
	sessionDurationSeconds int
}

func (s TokenSpec) Description() (string, bool) {
	if s.description == nil {
		return "", false
	}
	return *s.description, true
}

func (s TokenSpec) Privileges() (privilege.Set, bool) {
	if s.privileges == nil {
		return nil, false
	}
	return s.privileges.Clone(), true
}

// AppendPrivileges returns the entries an update concatenates onto the
// token's current list values instead of replacing them.
func (s TokenSpec) AppendPrivileges() (privilege.Set, bool) {
	if s.appendPrivileges == nil {
		return nil, false
	}
	return s.appendPrivileges.Clone(), true
}

func (s TokenSpec) SessionPrivileges() (privilege.Set, bool) {
	if s.sessionPrivileges == nil {
		return nil, false
	}
	return s.sessionPrivileges.Clone(), true
}

func (s TokenSpec) SessionDurationSeconds() int {
	return s.sessionDurationSeconds
}

// Warning flags a privilege combination the platform accepts but an
// operator probably did not intend. Warnings never block the operation;
// the platform's own precedence rules govern what the combination means.
type Warning string

type SpecBuilder struct {
	codec             *privilege.Codec
	description       *string
	privileges        privilege.Set
	appendPrivileges  privilege.Set
	sessionPrivileges privilege.Set
	sessionDuration   int
	durationSet       bool
}

func NewSpecBuilder(codec *privilege.Codec) *SpecBuilder {
	if codec == nil {
		codec = privilege.NewCodec(nil)
	}
	return &SpecBuilder{codec: codec}
}

func (b *SpecBuilder) Description(description string) *SpecBuilder {
	b.description = &description
	return b
}

func (b *SpecBuilder) Privilege(name privilege.Name, value privilege.Value) *SpecBuilder {
	if b.privileges == nil {
		b.privileges = privilege.Set{}
	}
	b.privileges[name] = value
	return b
}

// AppendPrivilege requests that value be concatenated onto the token's
// current entry for name on update, rather than replacing it. Only
// meaningful for list-valued privileges such as urirestrict.
func (b *SpecBuilder) AppendPrivilege(name privilege.Name, value privilege.Value) *SpecBuilder {
	if b.appendPrivileges == nil {
		b.appendPrivileges = privilege.Set{}
	}
	b.appendPrivileges[name] = value
	return b
}

// Unrestricted requests the explicit wildcard grant. This is the only way
// to produce the platform's "no restriction" sentinel; leaving privileges
// out entirely means "keep defaults", not "allow everything".
func (b *SpecBuilder) Unrestricted() *SpecBuilder {
	return b.Privilege(privilege.NameAll, privilege.Flag())
}

func (b *SpecBuilder) SessionPrivilege(name privilege.Name, value privilege.Value) *SpecBuilder {
	if b.sessionPrivileges == nil {
		b.sessionPrivileges = privilege.Set{}
	}
	b.sessionPrivileges[name] = value
	return b
}

func (b *SpecBuilder) SessionDuration(seconds int) *SpecBuilder {
	b.sessionDuration = seconds
	b.durationSet = true
	return b
}

// BuildCreate validates the spec for token creation. A description is
// mandatory on create; the privilege sets must only contain registered
// names.
func (b *SpecBuilder) BuildCreate() (TokenSpec, []Warning, error) {
	if b.description == nil || strings.TrimSpace(*b.description) == "" {
		return TokenSpec{}, nil, oerrors.New(oerrors.CodeInvalidSpec, "apptokens: a description is required to create a token")
	}
	return b.build()
}

// BuildDelta validates the spec as an update patch. A description-only
// delta is legal; only fields explicitly set are considered changed.
func (b *SpecBuilder) BuildDelta() (TokenSpec, []Warning, error) {
	return b.build()
}

func (b *SpecBuilder) build() (TokenSpec, []Warning, error) {
	if b.durationSet && b.sessionDuration <= 0 {
		return TokenSpec{}, nil, oerrors.New(oerrors.CodeInvalidSpec, "apptokens: session duration must be a positive number of seconds")
	}

	for _, set := range []privilege.Set{b.privileges, b.appendPrivileges, b.sessionPrivileges} {
		if set == nil {
			continue
		}
		if err := b.codec.Validate(set); err != nil {
			return TokenSpec{}, nil, err
		}
	}

	var warnings []Warning
	warnings = append(warnings, conflictWarnings(b.privileges)...)
	warnings = append(warnings, conflictWarnings(b.sessionPrivileges)...)

	spec := TokenSpec{
		description:            b.description,
		sessionDurationSeconds: b.sessionDuration,
	}
	if b.privileges != nil {
		cloned := b.privileges.Clone()
		spec.privileges = &cloned
	}
	if b.appendPrivileges != nil {
		cloned := b.appendPrivileges.Clone()
		spec.appendPrivileges = &cloned
	}
	if b.sessionPrivileges != nil {
		cloned := b.sessionPrivileges.Clone()
		spec.sessionPrivileges = &cloned
	}
	return spec, warnings, nil
}

// conflictWarnings flags an unrestricted grant sitting next to a scoped
// restriction or a scoped grant list. The platform allows the combination
// and its precedence rules decide the outcome, so this is advisory only.
func conflictWarnings(set privilege.Set) []Warning {
	if set == nil {
		return nil
	}

	unrestricted := false
	if _, ok := set[privilege.NameAll]; ok {
		unrestricted = true
	}
	if value, ok := set[privilege.NameEdit]; ok && value.IsWildcard() {
		unrestricted = true
	}
	if !unrestricted {
		return nil
	}

	for name, value := range set {
		if name == privilege.NameAll || (name == privilege.NameEdit && value.IsWildcard()) {
			continue
		}
		if value.Kind() == privilege.KindList || name == privilege.NameIPRestrict || name == privilege.NameURIRestrict {
			return []Warning{Warning("privilege set combines an unrestricted grant with scoped " + string(name) + "; platform precedence decides which applies")}
		}
	}
	return nil
}
