// Package http exposes the engine over a JSON API.
//
// This file extracts scopes, actors and record bodies from requests.

package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/b1411/finka/internal/core"
)

// Headers identifying the caller. Authentication happens upstream; the API
// trusts what the gateway forwards.
const (
	HeaderUserID  = "X-User-ID"
	HeaderUserOrg = "X-Org-Unit"
	HeaderRole    = "X-User-Role"
)

// maxRecordBody caps a staging record upload.
const maxRecordBody = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// ParseScope reads the org and period query parameters. The caller from
// the headers rides along in the scope.
func ParseScope(r *http.Request) (core.Scope, error) {
	q := r.URL.Query()
	period, err := core.ParsePeriod(q.Get("period"))
	if err != nil {
		return core.Scope{}, fmt.Errorf("%w: %v", core.ErrInvalidScope, err)
	}
	actor := ParseActor(r)
	scope := core.Scope{
		OrgUnitCode: sanitizeInput(q.Get("org")),
		PeriodYM:    period,
		UserID:      actor.UserID,
		Role:        actor.Role,
	}
	if err := scope.Validate(); err != nil {
		return core.Scope{}, err
	}
	return scope, nil
}

// ParseActor builds the acting user from the forwarded headers. An empty
// org unit means a headquarters user who may act on any branch.
func ParseActor(r *http.Request) core.Scope {
	return core.Scope{
		OrgUnitCode: sanitizeInput(r.Header.Get(HeaderUserOrg)),
		UserID:      sanitizeInput(r.Header.Get(HeaderUserID)),
		Role:        core.Role(strings.ToLower(sanitizeInput(r.Header.Get(HeaderRole)))),
	}
}

// ParseBool reads a boolean query parameter, falling back to def when it is
// absent or malformed.
func ParseBool(r *http.Request, key string, def bool) bool {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// readRecord decodes a staging record of domain from the request body.
func readRecord(r *http.Request, domain core.Domain) (core.Record, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxRecordBody {
		return nil, errBodyTooLarge
	}
	return core.DecodeRecord(domain, body)
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
