// Package router classifies ad-hoc commands by their leading keyword.
package router

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/mantadmin/internal/domain/request"
)

// verbs maps administrative leading keywords to their transport.
// Anything absent goes through the SQL text transport.
var verbs = map[string]request.Transport{
	"create":   request.AdminCommand,
	"alter":    request.AdminCommand,
	"drop":     request.AdminCommand,
	"truncate": request.AdminCommand,
	"show":     request.AdminCommand,
	"describe": request.AdminCommand,
	"desc":     request.AdminCommand,
	"explain":  request.AdminCommand,
	"set":      request.AdminCommand,
	"optimize": request.AdminCommand,
	"flush":    request.AdminCommand,
	"reload":   request.AdminCommand,
	"attach":   request.AdminCommand,
	"import":   request.AdminCommand,
	"freeze":   request.AdminCommand,
	"unfreeze": request.AdminCommand,
	"backup":   request.AdminCommand,
	"join":     request.AdminCommand,
	"debug":    request.AdminCommand,
}

// Verbs returns the administrative keywords, for introspection and tests.
func Verbs() []string {
	out := make([]string, 0, len(verbs))
	for v := range verbs {
		out = append(out, v)
	}
	return out
}

// Route returns the transport for a command.
func Route(command string) request.Transport {
	if t, ok := verbs[LeadingKeyword(command)]; ok {
		return t
	}
	return request.SQLText
}

// Compile builds the request for an ad-hoc command. raw picks the SQL variant that
// accepts any statement and answers with result sets; it has no effect on
// administrative commands.
func Compile(command string, raw bool) request.Compiled {
	if Route(command) == request.AdminCommand {
		return request.NewAdmin(command)
	}
	return request.NewSQL(command, raw)
}

// LeadingKeyword returns the case-folded first word of a command.
func LeadingKeyword(command string) string {
	s := strings.TrimLeftFunc(command, unicode.IsSpace)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '_'
	})
	if end >= 0 {
		s = s[:end]
	}
	return strings.ToLower(s)
}
