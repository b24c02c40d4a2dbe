package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CRS identifies a coordinate reference system in canonical "EPSG:<code>"
// form. The zero value means the CRS is unknown.
type CRS string

// Well-known reference systems.
const (
	WGS84       CRS = "EPSG:4326"
	WebMercator CRS = "EPSG:3857"
	BritishGrid CRS = "EPSG:27700"
)

var (
	// urnRe matches OGC URNs such as "urn:ogc:def:crs:EPSG::27700" or
	// "urn:ogc:def:crs:EPSG:6.6:4326".
	urnRe = regexp.MustCompile(`(?i)^urn:ogc:def:crs:([a-z]+):[0-9.]*:([a-z0-9]+)$`)

	// httpRe matches OpenGIS definition URLs such as
	// "http://www.opengis.net/def/crs/EPSG/0/3857".
	httpRe = regexp.MustCompile(`(?i)^https?://www\.opengis\.net/def/crs/([a-z]+)/[0-9.]+/([a-z0-9]+)$`)
)

// ParseCRS canonicalizes a CRS identifier. Accepted forms are "EPSG:4326",
// bare EPSG codes, OGC URNs, OpenGIS URLs, and "CRS84", which is treated as
// EPSG:4326 because coordinates are always held in x=lon, y=lat order.
func ParseCRS(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty identifier", ErrUnknownCRS)
	}

	authority, code := "", ""
	switch {
	case urnRe.MatchString(s):
		m := urnRe.FindStringSubmatch(s)
		authority, code = m[1], m[2]
	case httpRe.MatchString(s):
		m := httpRe.FindStringSubmatch(s)
		authority, code = m[1], m[2]
	case strings.Contains(s, ":"):
		authority, code, _ = strings.Cut(s, ":")
	default:
		authority, code = "EPSG", s
	}

	authority = strings.ToUpper(strings.TrimSpace(authority))
	code = strings.ToUpper(strings.TrimSpace(code))

	switch authority {
	case "OGC", "CRS":
		if code == "CRS84" || code == "84" {
			return WGS84, nil
		}
	case "EPSG":
		n, err := strconv.Atoi(code)
		if err == nil && n > 0 {
			return CRS("EPSG:" + strconv.Itoa(n)), nil
		}
	}
	if strings.EqualFold(s, "CRS84") {
		return WGS84, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCRS, s)
}

// Known reports whether the CRS has been set.
func (c CRS) Known() bool { return c != "" }

// Code returns the numeric EPSG code, or 0 for an unknown CRS.
func (c CRS) Code() int {
	_, code, ok := strings.Cut(string(c), ":")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}

func (c CRS) String() string {
	if !c.Known() {
		return "unknown"
	}
	return string(c)
}
