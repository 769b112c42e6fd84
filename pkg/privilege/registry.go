package privilege

import (
	"errors"
	"strconv"
	"strings"
)

// Class groups privilege names for canonical ordering and conflict checks.
// Restrictions encode before grants so a privilege string diffs cleanly.
type Class int

const (
	ClassRestriction Class = iota
	ClassGrant
	ClassToggle
)

type Entry struct {
	Name    Name
	Class   Class
	ListSep string // separator for list-valued clauses, "" for scalar kinds
	Kind    Kind
}

var (
	ErrEmptyName     = errors.New("privilege: entry name is empty")
	ErrDuplicateName = errors.New("privilege: entry already registered")
)

// Registry is the explicit table of privilege entries a codec understands.
// It is constructed and passed in rather than kept as process-wide state so
// tests can run against a reduced table.
type Registry struct {
	entries map[Name]Entry
	order   []Name
}

func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: map[Name]Entry{},
	}

	for _, entry := range entries {
		if err := r.register(entry); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) register(entry Entry) error {
	if entry.Name == "" {
		return ErrEmptyName
	}
	if _, exists := r.entries[entry.Name]; exists {
		return ErrDuplicateName
	}

	r.entries[entry.Name] = entry
	r.order = append(r.order, entry.Name)
	return nil
}

func (r *Registry) Entry(name Name) (Entry, bool) {
	entry, ok := r.entries[name]
	return entry, ok
}

// rank gives the canonical encode position of a registered name: class
// first, then registration order within the class.
func (r *Registry) rank(name Name) (int, int) {
	entry := r.entries[name]
	for i, n := range r.order {
		if n == name {
			return int(entry.Class), i
		}
	}
	return int(entry.Class), len(r.order)
}

// DefaultRegistry carries the full privilege grammar of the platform.
// The separators mirror the platform's documented syntax: clauses use
// name:value, list payloads join on "/", uri restrictions join on "|".
func DefaultRegistry() *Registry {
	registry, err := NewRegistry(
		Entry{Name: NameIPRestrict, Class: ClassRestriction, Kind: KindString},
		Entry{Name: NameURIRestrict, Class: ClassRestriction, Kind: KindList, ListSep: "|"},
		Entry{Name: NameActionsLimit, Class: ClassRestriction, Kind: KindInt},
		Entry{Name: NameRefTime, Class: ClassRestriction, Kind: KindInt},
		Entry{Name: NamePreview, Class: ClassRestriction, Kind: KindInt},
		Entry{Name: NamePrivacyContext, Class: ClassRestriction, Kind: KindString},
		Entry{Name: NameSessionID, Class: ClassRestriction, Kind: KindString},
		Entry{Name: NameSetRole, Class: ClassRestriction, Kind: KindString},

		Entry{Name: NameAll, Class: ClassGrant, Kind: KindFlag},
		Entry{Name: NameEdit, Class: ClassGrant, Kind: KindList, ListSep: "/"},
		Entry{Name: NameSview, Class: ClassGrant, Kind: KindList, ListSep: "/"},
		Entry{Name: NameList, Class: ClassGrant, Kind: KindFlag},
		Entry{Name: NameDownload, Class: ClassGrant, Kind: KindList, ListSep: "/"},
		Entry{Name: NameDownloadAsset, Class: ClassGrant, Kind: KindList, ListSep: "/"},
		Entry{Name: NameEditPlaylist, Class: ClassGrant, Kind: KindList, ListSep: "/"},
		Entry{Name: NameSviewPlaylist, Class: ClassGrant, Kind: KindList, ListSep: "/"},
		Entry{Name: NameEditUser, Class: ClassGrant, Kind: KindList, ListSep: "/"},

		Entry{Name: NameEnableEntitlement, Class: ClassToggle, Kind: KindFlag},
		Entry{Name: NameDisableEntitlement, Class: ClassToggle, Kind: KindFlag},
		Entry{Name: NameDisableEntitlementForEntry, Class: ClassToggle, Kind: KindList, ListSep: "/"},
		Entry{Name: NameEnableCategoryModeration, Class: ClassToggle, Kind: KindFlag},
	)
	if err != nil {
		panic("privilege: default registry is invalid: " + err.Error())
	}
	return registry
}

// ParseValue converts a raw clause payload into the value shape the entry
// declares. Used by the codec on decode and by callers accepting raw
// operator input.
func (e Entry) ParseValue(raw string) (Value, error) {
	switch e.Kind {
	case KindFlag:
		return Flag(), nil
	case KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, errors.New("privilege: " + string(e.Name) + " expects an integer value")
		}
		return Int(n), nil
	case KindList:
		if raw == "*" {
			return Wildcard(), nil
		}
		sep := e.ListSep
		if sep == "" {
			sep = "/"
		}
		return Strings(strings.Split(raw, sep)...), nil
	default:
		return String(raw), nil
	}
}
