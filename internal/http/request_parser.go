package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coppia/internal/core"
)

// maxBodyBytes bounds request bodies; the API only carries small JSON
// payloads.
const maxBodyBytes = 1 << 16

// requesterID reads the authenticated user from the X-User-ID header.
// Authentication itself happens upstream; the engine only needs identity.
func requesterID(r *http.Request) (core.UserID, error) {
	id := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if id == "" {
		return "", fmt.Errorf("missing X-User-ID header")
	}
	return core.UserID(id), nil
}

// parseScope reads the scope query parameter, defaulting to ours.
func parseScope(r *http.Request) (core.Scope, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("scope"))
	if raw == "" {
		return core.ScopeOurs, nil
	}
	scope := core.Scope(raw)
	if !core.ValidScope(scope) {
		return "", fmt.Errorf("unknown scope %q", raw)
	}
	return scope, nil
}

// parseYearMonthQuery extracts year and month from query parameters,
// defaulting to the current month.
func parseYearMonthQuery(r *http.Request) (year, month int, err error) {
	now := time.Now()
	year = now.Year()
	month = int(now.Month())

	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid year %q", v)
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		if month, err = strconv.Atoi(v); err != nil {
			return 0, 0, fmt.Errorf("invalid month %q", v)
		}
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month %d out of range", month)
	}
	return year, month, nil
}

// parseYearMonthPath extracts {year}/{month} path values.
func parseYearMonthPath(r *http.Request) (year, month int, err error) {
	year, err = strconv.Atoi(r.PathValue("year"))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", r.PathValue("year"))
	}
	month, err = strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q", r.PathValue("month"))
	}
	return year, month, nil
}

// parseMonthValue parses a YYYY-MM path value.
func parseMonthValue(v string) (year, month int, err error) {
	parts := strings.SplitN(v, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid month %q, want YYYY-MM", v)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, want YYYY-MM", v)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("invalid month %q, want YYYY-MM", v)
	}
	return year, month, nil
}

// parseMonthRangePath extracts a {start}/{end} month range (YYYY-MM each),
// rejecting inverted ranges.
func parseMonthRangePath(r *http.Request) (startYear, startMonth, endYear, endMonth int, err error) {
	startYear, startMonth, err = parseMonthValue(r.PathValue("start"))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	endYear, endMonth, err = parseMonthValue(r.PathValue("end"))
	if err != nil {
		return 0, 0, 0, 0, err
	}
	if endYear*12+endMonth < startYear*12+startMonth {
		return 0, 0, 0, 0, fmt.Errorf("range end before start")
	}
	return startYear, startMonth, endYear, endMonth, nil
}

// decodeJSON parses a bounded JSON request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// sanitizeInput trims whitespace and strips control characters.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
