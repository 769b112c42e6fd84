package cmd

import (
	"github.com/spf13/pflag"

	"github.com/ottlabs/apptokens"
	"github.com/ottlabs/apptokens/pkg/privilege"
)

// privilegeFlags maps one CLI flag onto each privilege name the codec
// knows. Only flags the operator actually set end up in the built spec, so
// "no flags given" stays distinct from "explicitly unrestricted".
type privilegeFlags struct {
	lists   map[privilege.Name]*[]string
	strings map[privilege.Name]*string
	ints    map[privilege.Name]*int64
	bools   map[privilege.Name]*bool

	unrestricted bool
}

func newPrivilegeFlags() *privilegeFlags {
	return &privilegeFlags{
		lists:   map[privilege.Name]*[]string{},
		strings: map[privilege.Name]*string{},
		ints:    map[privilege.Name]*int64{},
		bools:   map[privilege.Name]*bool{},
	}
}

func (f *privilegeFlags) register(flags *pflag.FlagSet) {
	listFlag := func(name privilege.Name, usage string) {
		f.lists[name] = flags.StringSlice(string(name), nil, usage)
	}
	stringFlag := func(name privilege.Name, usage string) {
		f.strings[name] = flags.String(string(name), "", usage)
	}
	intFlag := func(name privilege.Name, usage string) {
		f.ints[name] = flags.Int64(string(name), 0, usage)
	}
	boolFlag := func(name privilege.Name, usage string) {
		f.bools[name] = flags.Bool(string(name), false, usage)
	}

	listFlag(privilege.NameEdit, "Grant edit access. Entry ids or * for any entry.")
	listFlag(privilege.NameSview, "Grant protected-view access. Entry ids or * for any entry.")
	boolFlag(privilege.NameList, "Grant listing of all entries.")
	listFlag(privilege.NameDownload, "Grant download access. Entry ids or * for any entry.")
	listFlag(privilege.NameDownloadAsset, "Grant asset download access. Asset ids or *.")
	listFlag(privilege.NameEditPlaylist, "Grant playlist edit access. Playlist ids.")
	listFlag(privilege.NameSviewPlaylist, "Grant playlist protected-view access. Playlist ids.")
	listFlag(privilege.NameEditUser, "Act on behalf of the given users, or * for any user.")
	intFlag(privilege.NameActionsLimit, "Limit the number of actions a session may perform.")
	stringFlag(privilege.NameSetRole, "Apply the given role id to sessions.")
	stringFlag(privilege.NameIPRestrict, "Restrict sessions to a single IP address.")
	listFlag(privilege.NameURIRestrict, "Restrict sessions to the given URIs. A * suffix allows prefixes.")
	boolFlag(privilege.NameEnableEntitlement, "Force entitlement checks.")
	boolFlag(privilege.NameDisableEntitlement, "Bypass entitlement checks.")
	listFlag(privilege.NameDisableEntitlementForEntry, "Bypass entitlement checks for the given entry ids.")
	stringFlag(privilege.NamePrivacyContext, "Set the privacy context for entitlement checks.")
	boolFlag(privilege.NameEnableCategoryModeration, "Enable category moderation.")
	intFlag(privilege.NameRefTime, "Override the reference time as a Unix timestamp.")
	intFlag(privilege.NamePreview, "Restrict playback to a preview of the given size in bytes.")
	stringFlag(privilege.NameSessionID, "Tag sessions with an arbitrary identifier.")

	flags.BoolVar(&f.unrestricted, "unrestricted", false, "Request the explicit wildcard grant instead of the token defaults.")
}

// apply copies every flag the operator set into the builder. With
// appendLists set, list-valued flags concatenate onto the token's current
// entries instead of replacing them.
func (f *privilegeFlags) apply(flags *pflag.FlagSet, builder *apptokens.SpecBuilder, appendLists bool) {
	for name, value := range f.lists {
		if !flags.Changed(string(name)) {
			continue
		}
		if len(*value) == 1 && (*value)[0] == "*" {
			builder.Privilege(name, privilege.Wildcard())
			continue
		}
		if appendLists {
			builder.AppendPrivilege(name, privilege.Strings(*value...))
			continue
		}
		builder.Privilege(name, privilege.Strings(*value...))
	}
	for name, value := range f.strings {
		if flags.Changed(string(name)) {
			builder.Privilege(name, privilege.String(*value))
		}
	}
	for name, value := range f.ints {
		if flags.Changed(string(name)) {
			builder.Privilege(name, privilege.Int(*value))
		}
	}
	for name, value := range f.bools {
		if flags.Changed(string(name)) && *value {
			builder.Privilege(name, privilege.Flag())
		}
	}
	if f.unrestricted {
		builder.Unrestricted()
	}
}
