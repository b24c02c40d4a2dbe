package domain

// RawGeometry is the GeoJSON point attached to an observation.
// Coordinates follow GeoJSON axis order: [lon, lat].
type RawGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// RawTaxon is the taxonomic classification attached to an observation.
type RawTaxon struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
	Rank string `json:"rank,omitempty"`
}

// RawObservation is one result from the observation API. Only the fields the
// pipeline reads are decoded.
type RawObservation struct {
	ID           int64        `json:"id"`
	GeoJSON      *RawGeometry `json:"geojson"`
	Taxon        *RawTaxon    `json:"taxon"`
	SpeciesGuess *string      `json:"species_guess"`
	ObservedOn   *string      `json:"observed_on"`
}

// ObservationPage is one page of the remote observation collection.
type ObservationPage struct {
	TotalResults int              `json:"total_results"`
	Page         int              `json:"page"`
	PerPage      int              `json:"per_page"`
	Results      []RawObservation `json:"results"`
}

// ObservationPoint is the canonical, geometry-bearing form of an observation.
// Lat and Lon are WGS84 degrees and always finite.
type ObservationPoint struct {
	ID           int     `json:"id"`
	SpeciesName  *string `json:"species_name"`
	SpeciesGuess *string `json:"species_guess"`
	ObservedOn   *string `json:"observed_on"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
}

// JoinedRecord is an observation point with the label of the region that
// contains it. RegionLabel is nil when no region matched.
type JoinedRecord struct {
	ObservationPoint
	RegionLabel *string `json:"region_label"`
}
