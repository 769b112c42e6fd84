package privilege

import (
	"sort"
	"strings"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
)

const (
	clauseSeparator = ","
	valueSeparator  = ":"

	// wildcardSentinel is the platform's explicit "unrestricted" token.
	// It is only ever produced from a set that carries NameAll; an empty
	// set encodes to the empty string (absence) instead.
	wildcardSentinel = "*"
)

// Codec converts between a Set and the platform's single-string privilege
// grammar. Conversion is lossless and deterministic: encode order follows
// the registry's canonical ranking, decode tolerates any clause order and
// keeps unrecognized clauses as opaque entries.
type Codec struct {
	registry *Registry
}

func NewCodec(registry *Registry) *Codec {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Codec{registry: registry}
}

// Validate rejects sets containing names the registry does not know.
// Opaque entries pass: they exist precisely to carry unknown grammar.
func (c *Codec) Validate(set Set) error {
	for name, value := range set {
		if value.Kind() == KindOpaque {
			continue
		}
		if _, ok := c.registry.Entry(name); !ok {
			return oerrors.New(oerrors.CodeUnknownPrivilege, "apptokens: unknown privilege "+string(name))
		}
	}
	return nil
}

func (c *Codec) Encode(set Set) (string, error) {
	if len(set) == 0 {
		return "", nil
	}

	known := make([]Name, 0, len(set))
	opaque := make([]Name, 0)
	for name, value := range set {
		if value.Kind() == KindOpaque {
			opaque = append(opaque, name)
			continue
		}
		if _, ok := c.registry.Entry(name); !ok {
			return "", oerrors.New(oerrors.CodeUnknownPrivilege, "apptokens: no encoder registered for privilege "+string(name))
		}
		known = append(known, name)
	}

	sort.Slice(known, func(i, j int) bool {
		classI, posI := c.registry.rank(known[i])
		classJ, posJ := c.registry.rank(known[j])
		if classI != classJ {
			return classI < classJ
		}
		return posI < posJ
	})
	sort.Slice(opaque, func(i, j int) bool { return opaque[i] < opaque[j] })

	clauses := make([]string, 0, len(set))
	for _, name := range known {
		entry, _ := c.registry.Entry(name)
		clauses = append(clauses, encodeClause(entry, set[name]))
	}
	for _, name := range opaque {
		clauses = append(clauses, encodeOpaque(name, set[name]))
	}

	return strings.Join(clauses, clauseSeparator), nil
}

func encodeClause(entry Entry, value Value) string {
	if entry.Name == NameAll {
		return wildcardSentinel
	}
	if entry.Kind == KindFlag {
		// The list grant is the one flag the platform spells with an
		// explicit wildcard payload.
		if entry.Name == NameList {
			return string(NameList) + valueSeparator + wildcardSentinel
		}
		return string(entry.Name)
	}
	return string(entry.Name) + valueSeparator + value.render(entry.ListSep)
}

func encodeOpaque(name Name, value Value) string {
	raw := value.Scalar()
	if raw == "" {
		return string(name)
	}
	return string(name) + valueSeparator + raw
}

// Decode parses an encoded privilege string. Clauses the registry does not
// recognize become opaque entries rather than errors, so a later
// merge-and-encode cycle never loses platform-side data.
func (c *Codec) Decode(encoded string) (Set, error) {
	set := Set{}
	if strings.TrimSpace(encoded) == "" {
		return set, nil
	}

	for _, clause := range strings.Split(encoded, clauseSeparator) {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		if clause == wildcardSentinel {
			set[NameAll] = Flag()
			continue
		}

		name, payload, hasPayload := strings.Cut(clause, valueSeparator)
		entry, ok := c.registry.Entry(Name(name))
		if !ok {
			set[Name(name)] = Opaque(payload)
			continue
		}

		if entry.Kind == KindFlag {
			set[entry.Name] = Flag()
			continue
		}
		if !hasPayload {
			set[entry.Name] = String("")
			continue
		}

		value, err := entry.ParseValue(payload)
		if err != nil {
			// The platform produced this string, so a payload the
			// entry cannot parse is carried through opaquely rather
			// than rejected.
			set[entry.Name] = Opaque(payload)
			continue
		}
		set[entry.Name] = value
	}

	return set, nil
}

// Merge applies delta as a patch over base, per-name. Wrapper over the Set
// operation so callers hold one codec handle for the whole grammar.
func (c *Codec) Merge(base, delta Set) Set {
	return Merge(base, delta)
}

// ParseClause parses one operator-supplied name:value clause. Unlike
// Decode, which tolerates unknown grammar coming back from the platform,
// operator input with an unregistered name is an error.
func (c *Codec) ParseClause(clause string) (Name, Value, error) {
	clause = strings.TrimSpace(clause)
	if clause == wildcardSentinel {
		return NameAll, Flag(), nil
	}

	name, payload, _ := strings.Cut(clause, valueSeparator)
	entry, ok := c.registry.Entry(Name(name))
	if !ok {
		return "", Value{}, oerrors.New(oerrors.CodeUnknownPrivilege, "apptokens: unknown privilege "+name)
	}

	value, err := entry.ParseValue(payload)
	if err != nil {
		return "", Value{}, oerrors.Wrap(oerrors.CodeInvalidSpec, "apptokens: bad value for privilege "+name, err)
	}
	return entry.Name, value, nil
}
