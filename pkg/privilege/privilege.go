package privilege

import (
	"slices"
	"strconv"
)

// Name identifies a privilege clause in the platform's privilege grammar.
type Name string

const (
	NameEdit                       Name = "edit"
	NameSview                      Name = "sview"
	NameList                       Name = "list"
	NameDownload                   Name = "download"
	NameDownloadAsset              Name = "downloadasset"
	NameEditPlaylist               Name = "editplaylist"
	NameSviewPlaylist              Name = "sviewplaylist"
	NameEditUser                   Name = "edituser"
	NameActionsLimit               Name = "actionslimit"
	NameSetRole                    Name = "setrole"
	NameIPRestrict                 Name = "iprestrict"
	NameURIRestrict                Name = "urirestrict"
	NameEnableEntitlement          Name = "enableentitlement"
	NameDisableEntitlement         Name = "disableentitlement"
	NameDisableEntitlementForEntry Name = "disableentitlementforentry"
	NamePrivacyContext             Name = "privacycontext"
	NameEnableCategoryModeration   Name = "enablecategorymoderation"
	NameRefTime                    Name = "reftime"
	NamePreview                    Name = "preview"
	NameSessionID                  Name = "sessionid"

	// NameAll is the explicit "no restriction" grant. It encodes to the
	// platform's wildcard sentinel and is distinct from an empty set,
	// which encodes to absence.
	NameAll Name = "all"
)

type Kind int

const (
	KindString Kind = iota
	KindList
	KindInt
	KindFlag
	// KindOpaque carries a clause the codec does not recognize, verbatim.
	// Opaque entries survive decode-merge-encode cycles untouched so
	// platform-side grammar this module predates is never dropped.
	KindOpaque
)

type Value struct {
	kind   Kind
	scalar string
	list   []string
	number int64
}

func String(s string) Value {
	return Value{kind: KindString, scalar: s}
}

func Strings(values ...string) Value {
	return Value{kind: KindList, list: slices.Clone(values)}
}

func Int(n int64) Value {
	return Value{kind: KindInt, number: n}
}

func Flag() Value {
	return Value{kind: KindFlag}
}

func Opaque(raw string) Value {
	return Value{kind: KindOpaque, scalar: raw}
}

// Wildcard is the value form of "any target" for scoped grants.
func Wildcard() Value {
	return String("*")
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) Scalar() string {
	return v.scalar
}

func (v Value) List() []string {
	return slices.Clone(v.list)
}

func (v Value) Int() int64 {
	return v.number
}

func (v Value) IsWildcard() bool {
	return v.kind == KindString && v.scalar == "*"
}

// Equal reports deep equality. go-cmp picks this up in tests.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString, KindOpaque:
		return v.scalar == other.scalar
	case KindList:
		return slices.Equal(v.list, other.list)
	case KindInt:
		return v.number == other.number
	case KindFlag:
		return true
	}
	return false
}

func (v Value) render(listSep string) string {
	switch v.kind {
	case KindString, KindOpaque:
		return v.scalar
	case KindList:
		out := ""
		for i, item := range v.list {
			if i > 0 {
				out += listSep
			}
			out += item
		}
		return out
	case KindInt:
		return strconv.FormatInt(v.number, 10)
	}
	return ""
}

// Set maps privilege names to values. At most one value per name; order of
// insertion carries no meaning, the codec imposes a canonical encode order.
type Set map[Name]Value

// Merge overlays delta on base: delta entries overwrite same-named base
// entries, base-only entries survive. Neither input is mutated.
func Merge(base, delta Set) Set {
	merged := make(Set, len(base)+len(delta))
	for name, value := range base {
		merged[name] = value
	}
	for name, value := range delta {
		merged[name] = value
	}
	return merged
}

// Append concatenates extra onto base for list values, dropping entries
// already present so repeated appends stay idempotent. A wildcard on either
// side absorbs the other; a non-list base is replaced outright.
func Append(base, extra Value) Value {
	if base.IsWildcard() || extra.IsWildcard() {
		return Wildcard()
	}
	if base.kind != KindList || extra.kind != KindList {
		return extra
	}

	combined := slices.Clone(base.list)
	for _, item := range extra.list {
		if !slices.Contains(combined, item) {
			combined = append(combined, item)
		}
	}
	return Value{kind: KindList, list: combined}
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for name, value := range s {
		out[name] = value
	}
	return out
}
