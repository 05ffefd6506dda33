package propertyfinder

import "strings"

// locationNames maps the portal's location ids to display names.
var locationNames = map[string]string{
	"1":  "Dubai",
	"49": "Dubai Land",
	"50": "Business Bay",
	"51": "Dubai Marina",
	"52": "Downtown Dubai",
	"53": "Palm Jumeirah",
	"54": "JBR",
	"55": "Dubai Hills Estate",
	"56": "Arabian Ranches",
	"57": "Jumeirah Village Circle",
	"58": "Al Barsha",
	"59": "DIFC",
	"60": "City Walk",
	"61": "Jumeirah",
	"62": "Al Quoz",
	"63": "Dubai Silicon Oasis",
	"64": "Motor City",
	"65": "Sports City",
	"66": "International City",
	"67": "Discovery Gardens",
}

// ResolveLocation returns the display name for a location id. Anything that
// is not a known id is taken to be a name already.
func ResolveLocation(location string) string {
	location = strings.TrimSpace(location)
	if name, ok := locationNames[location]; ok {
		return name
	}
	return location
}

var propertyTypes = []string{"Apartment", "Villa", "Townhouse", "Penthouse", "Duplex"}

var agencies = []string{
	"Emirates Properties",
	"Gulf Sotheby's",
	"Betterhomes",
	"Allsopp & Allsopp",
	"Driven Properties",
	"LuxuryProperty.ae",
	"Haus & Haus",
	"Engel & Völkers",
}
