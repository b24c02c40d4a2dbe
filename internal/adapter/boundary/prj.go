package boundary

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/couchcryptid/sightings-etl/internal/domain"
)

var (
	// authorityRe matches WKT1 AUTHORITY["EPSG","27700"] and WKT2 ID["EPSG",27700].
	authorityRe = regexp.MustCompile(`(?i)(?:AUTHORITY|ID)\[\s*"EPSG"\s*,\s*"?(\d+)"?\s*\]`)

	projcsRe = regexp.MustCompile(`(?i)^\s*PROJCS\[\s*"([^"]+)"`)
	geogcsRe = regexp.MustCompile(`(?i)^\s*GEOGCS\[\s*"([^"]+)"`)
)

// esriNames maps the coordinate system names ESRI writes into .prj files
// without an authority code.
var esriNames = map[string]domain.CRS{
	"british_national_grid":                  domain.BritishGrid,
	"osgb_1936_british_national_grid":        domain.BritishGrid,
	"osgb36 / british national grid":         domain.BritishGrid,
	"wgs_1984_web_mercator_auxiliary_sphere": domain.WebMercator,
	"wgs_1984_web_mercator":                  domain.WebMercator,
	"wgs 84 / pseudo-mercator":               domain.WebMercator,
	"gcs_wgs_1984":                           domain.WGS84,
	"wgs 84":                                 domain.WGS84,
}

// parsePRJ identifies the CRS described by a shapefile .prj. The outermost
// authority code wins; both WKT1 and WKT2 write it last.
func parsePRJ(wkt string) (domain.CRS, error) {
	if m := authorityRe.FindAllStringSubmatch(wkt, -1); len(m) > 0 {
		return domain.ParseCRS("EPSG:" + m[len(m)-1][1])
	}

	name := ""
	if m := projcsRe.FindStringSubmatch(wkt); m != nil {
		name = m[1]
	} else if m := geogcsRe.FindStringSubmatch(wkt); m != nil {
		name = m[1]
	}
	if c, ok := esriNames[strings.ToLower(name)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: unrecognized projection %q", domain.ErrUnknownCRS, name)
}
