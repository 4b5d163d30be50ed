package request

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/mantadmin/internal/domain/result"
)

// Transport is the backend channel a request travels through.
type Transport string

// Transports.
const (
	SearchDSL    Transport = "search-dsl"
	SQLText      Transport = "sql-text"
	AdminCommand Transport = "admin-command"
)

// ContentKind is the Content-Type of the request body.
type ContentKind string

// Content kinds.
const (
	JSON           ContentKind = "application/json"
	PlainText      ContentKind = "text/plain"
	FormURLEncoded ContentKind = "application/x-www-form-urlencoded"
)

// Backend paths.
const (
	PathSearch  = "/search"
	PathSQL     = "/sql"
	PathCLIJSON = "/cli_json"
	PathInsert  = "/insert"
	PathUpdate  = "/update"
	PathDelete  = "/delete"
)

// Compiled is a ready-to-send backend request. It is immutable once built.
type Compiled struct {
	transport Transport
	path      string
	query     string
	content   ContentKind
	body      []byte
	payload   any
	shape     result.Shape
}

// NewJSON builds a JSON request against the search-dsl transport.
// payload is kept for inspection, body holds its encoding.
func NewJSON(path string, payload any, shape result.Shape) (Compiled, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Compiled{}, fmt.Errorf("encode %s body: %w", path, err)
	}
	return Compiled{
		transport: SearchDSL,
		path:      path,
		content:   JSON,
		body:      body,
		payload:   payload,
		shape:     shape,
	}, nil
}

// NewSQL builds a raw SQL text request. raw selects the tabular response variant.
func NewSQL(statement string, raw bool) Compiled {
	c := Compiled{
		transport: SQLText,
		path:      PathSQL,
		content:   PlainText,
		body:      []byte(statement),
		payload:   statement,
		shape:     result.Hits,
	}
	if raw {
		c.query = "mode=raw"
		c.shape = result.Tabular
	}
	return c
}

// NewAdmin builds an administrative command request.
func NewAdmin(command string) Compiled {
	return Compiled{
		transport: AdminCommand,
		path:      PathCLIJSON,
		content:   FormURLEncoded,
		body:      []byte(command),
		payload:   command,
		shape:     result.Admin,
	}
}

// Transport returns the backend channel.
func (c Compiled) Transport() Transport { return c.transport }

// Path returns the backend endpoint path.
func (c Compiled) Path() string { return c.path }

// RawQuery returns the URL query string, without the leading "?".
func (c Compiled) RawQuery() string { return c.query }

// ContentKind returns the request Content-Type.
func (c Compiled) ContentKind() ContentKind { return c.content }

// Body returns a copy of the encoded request body.
func (c Compiled) Body() []byte {
	out := make([]byte, len(c.body))
	copy(out, c.body)
	return out
}

// Payload returns the structured payload the body was encoded from.
func (c Compiled) Payload() any { return c.payload }

// Shape returns the response shape the transport produces.
func (c Compiled) Shape() result.Shape { return c.shape }

// URL returns the path with its query string.
func (c Compiled) URL() string {
	if c.query == "" {
		return c.path
	}
	return c.path + "?" + c.query
}
