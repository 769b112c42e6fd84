package privilege

import (
	"strings"

	oerrors "github.com/ottlabs/apptokens/pkg/errors"
)

const apiServicePrefix = "/api_v3/service/"

// ActionURI translates a service.action pattern into the URI form the
// urirestrict privilege matches against: "media.list" becomes
// "/api_v3/service/media/action/list/" and "media.*" becomes
// "/api_v3/service/media/action/*". Exact patterns gain a trailing slash
// so they do not also match longer action names sharing the prefix.
func ActionURI(pattern string) (string, error) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return "", oerrors.New(oerrors.CodeInvalidSpec, "apptokens: action pattern is empty")
	}
	if strings.ContainsAny(pattern, ",|: ") {
		return "", oerrors.New(oerrors.CodeInvalidSpec, "apptokens: action pattern "+pattern+" contains a reserved character")
	}

	uri := apiServicePrefix + strings.ReplaceAll(pattern, ".", "/action/")
	if !strings.Contains(pattern, "*") {
		uri += "/"
	}
	return uri, nil
}

// ActionURIs translates a batch of service.action patterns into a
// urirestrict list value.
func ActionURIs(patterns []string) (Value, error) {
	uris := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		uri, err := ActionURI(pattern)
		if err != nil {
			return Value{}, err
		}
		uris = append(uris, uri)
	}
	return Strings(uris...), nil
}
