package privilege

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
)

func TestEncodeDeterministicOrder(t *testing.T) {
	codec := NewCodec(nil)

	first := Set{
		NameEdit:       Wildcard(),
		NameIPRestrict: String("10.0.0.8"),
		NameList:       Flag(),
	}
	second := Set{
		NameList:       Flag(),
		NameEdit:       Wildcard(),
		NameIPRestrict: String("10.0.0.8"),
	}

	encodedFirst, err := codec.Encode(first)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	encodedSecond, err := codec.Encode(second)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if encodedFirst != encodedSecond {
		t.Fatalf("expected identical encodings, got %q and %q", encodedFirst, encodedSecond)
	}
	if encodedFirst != "iprestrict:10.0.0.8,edit:*,list:*" {
		t.Fatalf("unexpected canonical encoding: %q", encodedFirst)
	}
}

func TestRoundTrip(t *testing.T) {
	codec := NewCodec(nil)

	cases := map[string]Set{
		"single scalar": {
			NameIPRestrict: String("192.168.4.2"),
		},
		"entry list": {
			NameEdit: Strings("0_abc123", "0_def456"),
		},
		"uri list": {
			NameURIRestrict: Strings("/api_v3/service/media/", "/api_v3/service/playlist/"),
		},
		"integers and flags": {
			NameActionsLimit:      Int(25),
			NameRefTime:           Int(1700000000),
			NameEnableEntitlement: Flag(),
			NameList:              Flag(),
		},
		"wildcard grant": {
			NameAll: Flag(),
		},
		"mixed": {
			NameIPRestrict: String("10.1.1.1"),
			NameEdit:       Wildcard(),
			NameEditUser:   Strings("alice", "bob"),
			NamePreview:    Int(1048576),
		},
	}

	for label, set := range cases {
		encoded, err := codec.Encode(set)
		if err != nil {
			t.Fatalf("%s: encode failed: %v", label, err)
		}
		decoded, err := codec.Decode(encoded)
		if err != nil {
			t.Fatalf("%s: decode failed: %v", label, err)
		}
		if diff := cmp.Diff(set, decoded); diff != "" {
			t.Fatalf("%s: round trip mismatch (-want +got):\n%s", label, diff)
		}
	}
}

func TestDecodeOrderTolerant(t *testing.T) {
	codec := NewCodec(nil)

	forward, err := codec.Decode("iprestrict:10.0.0.8,edit:*,list:*")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	reversed, err := codec.Decode("list:*,edit:*,iprestrict:10.0.0.8")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if diff := cmp.Diff(forward, reversed); diff != "" {
		t.Fatalf("decode order changed result (-forward +reversed):\n%s", diff)
	}
}

func TestEncodeEmptySetIsAbsence(t *testing.T) {
	codec := NewCodec(nil)

	encoded, err := codec.Encode(Set{})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded != "" {
		t.Fatalf("empty set must encode to absence, got %q", encoded)
	}

	unrestricted, err := codec.Encode(Set{NameAll: Flag()})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if unrestricted != "*" {
		t.Fatalf("explicit unrestricted must encode to the wildcard sentinel, got %q", unrestricted)
	}
}

func TestEncodeUnknownName(t *testing.T) {
	codec := NewCodec(nil)

	_, err := codec.Encode(Set{Name("teleport"): String("yes")})
	if err == nil {
		t.Fatal("expected unknown privilege error")
	}
	if !oerrors.IsCode(err, oerrors.CodeUnknownPrivilege) {
		t.Fatalf("expected code %q, got %v", oerrors.CodeUnknownPrivilege, err)
	}
}

func TestValidateRejectsUnknownName(t *testing.T) {
	codec := NewCodec(nil)

	if err := codec.Validate(Set{NameEdit: Wildcard()}); err != nil {
		t.Fatalf("known name rejected: %v", err)
	}
	err := codec.Validate(Set{Name("teleport"): String("yes")})
	if !oerrors.IsCode(err, oerrors.CodeUnknownPrivilege) {
		t.Fatalf("expected code %q, got %v", oerrors.CodeUnknownPrivilege, err)
	}
	if err := codec.Validate(Set{Name("teleport"): Opaque("yes")}); err != nil {
		t.Fatalf("opaque entry must pass validation: %v", err)
	}
}

func TestOpaquePreservation(t *testing.T) {
	codec := NewCodec(nil)

	decoded, err := codec.Decode("edit:*,futurething:argone|argtwo")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	value, ok := decoded[Name("futurething")]
	if !ok {
		t.Fatal("unrecognized clause was dropped")
	}
	if value.Kind() != KindOpaque || value.Scalar() != "argone|argtwo" {
		t.Fatalf("unexpected opaque value: %+v", value)
	}

	merged := codec.Merge(decoded, Set{NameIPRestrict: String("10.0.0.1")})
	encoded, err := codec.Encode(merged)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	if !strings.Contains(encoded, "futurething:argone|argtwo") {
		t.Fatalf("opaque clause lost on re-encode: %q", encoded)
	}
	if !strings.Contains(encoded, "iprestrict:10.0.0.1") || !strings.Contains(encoded, "edit:*") {
		t.Fatalf("merged clauses missing: %q", encoded)
	}
}

func TestMergeLaws(t *testing.T) {
	base := Set{
		NameEdit:       Strings("0_abc"),
		NameIPRestrict: String("10.0.0.1"),
	}

	identity := Merge(base, Set{})
	if diff := cmp.Diff(base, identity); diff != "" {
		t.Fatalf("merge with empty delta changed base (-want +got):\n%s", diff)
	}

	patched := Merge(base, Set{NameEdit: Wildcard()})
	if !patched[NameEdit].Equal(Wildcard()) {
		t.Fatalf("delta entry not applied: %+v", patched[NameEdit])
	}
	if !patched[NameIPRestrict].Equal(String("10.0.0.1")) {
		t.Fatalf("base-only entry disturbed: %+v", patched[NameIPRestrict])
	}

	// Merge must not alias its inputs.
	patched[NameSessionID] = String("x")
	if _, ok := base[NameSessionID]; ok {
		t.Fatal("merge result aliases base")
	}
}

func TestDecodeListSeparators(t *testing.T) {
	codec := NewCodec(nil)

	set, err := codec.Decode("edituser:alice/bob,urirestrict:/download/|/media/")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if diff := cmp.Diff(Strings("alice", "bob"), set[NameEditUser]); diff != "" {
		t.Fatalf("edituser list mismatch:\n%s", diff)
	}
	if diff := cmp.Diff(Strings("/download/", "/media/"), set[NameURIRestrict]); diff != "" {
		t.Fatalf("urirestrict list mismatch:\n%s", diff)
	}
}

func TestDecodeUnparsablePayloadKeptOpaque(t *testing.T) {
	codec := NewCodec(nil)

	set, err := codec.Decode("actionslimit:plenty")
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	value := set[NameActionsLimit]
	if value.Kind() != KindOpaque || value.Scalar() != "plenty" {
		t.Fatalf("expected opaque carry-through, got %+v", value)
	}

	encoded, err := codec.Encode(set)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if encoded != "actionslimit:plenty" {
		t.Fatalf("unexpected re-encoding: %q", encoded)
	}
}

func TestParseClause(t *testing.T) {
	codec := NewCodec(nil)

	name, value, err := codec.ParseClause("sview:0_abc/0_def")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if name != NameSview || !value.Equal(Strings("0_abc", "0_def")) {
		t.Fatalf("unexpected parse result: %s %+v", name, value)
	}

	name, value, err = codec.ParseClause("*")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if name != NameAll || value.Kind() != KindFlag {
		t.Fatalf("wildcard clause mis-parsed: %s %+v", name, value)
	}

	_, _, err = codec.ParseClause("teleport:now")
	if !oerrors.IsCode(err, oerrors.CodeUnknownPrivilege) {
		t.Fatalf("expected unknown-privilege code, got %v", err)
	}

	_, _, err = codec.ParseClause("actionslimit:lots")
	if !oerrors.IsCode(err, oerrors.CodeInvalidSpec) {
		t.Fatalf("expected invalid-spec code, got %v", err)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		Entry{Name: NameEdit, Class: ClassGrant, Kind: KindList, ListSep: "/"},
		Entry{Name: NameEdit, Class: ClassGrant, Kind: KindList, ListSep: "/"},
	)
	if err != ErrDuplicateName {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	_, err = NewRegistry(Entry{Name: ""})
	if err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}
