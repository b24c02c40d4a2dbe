// Package domain models species observations and the regional boundaries they
// are joined against.
//
// # Data Sources
//
// Observations come from the iNaturalist v1 observations endpoint. Each result
// may carry a GeoJSON point, a taxon, a free-text species guess, and an
// observation date. Results without a point (for example obscured or
// unlocated records) are dropped during normalization.
//
// Boundaries come from a polygon collection such as the Wildlife Trust
// regional boundaries published as an ArcGIS FeatureServer layer. Each
// polygon carries a label attribute (by default "Trust").
//
// # Coordinate Conventions
//
// GeoJSON positions are [lon, lat]:
//
//	"geojson": {"type": "Point", "coordinates": [-1.2577, 51.7520]}
//	means lat=51.7520, lon=-1.2577.
//
// Geometries are always held with x=easting/longitude and y=northing/latitude,
// so "OGC:CRS84" and "EPSG:4326" denote the same reference system here. A CRS
// is stored as canonical "EPSG:<code>" text; see [ParseCRS].
//
// # Identifiers
//
// A point's ID is the 1-based position of its raw record in the complete
// collected sequence, across all pages. Records dropped for missing geometry
// still consume their position, so IDs can have gaps but always map back to
// source order.
package domain
