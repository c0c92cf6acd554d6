package gallery

import (
	"slices"
	"strings"
)

const (
	// MaxImages is the number of images a single building form accepts.
	MaxImages = 5
	// MaxImageBytes is the largest image file a building form accepts.
	MaxImageBytes = 5 << 20
	// MarkerSize is the edge length of a pixel marker.
	MarkerSize = 20
)

// Neighbourhoods lists the Berlin districts offered by the building form.
var Neighbourhoods = []string{
	"Charlottenburg-Wilmersdorf",
	"Friedrichshain-Kreuzberg",
	"Lichtenberg",
	"Marzahn-Hellersdorf",
	"Mitte",
	"Neukölln",
	"Pankow",
	"Reinickendorf",
	"Spandau",
	"Steglitz-Zehlendorf",
	"Tempelhof-Schöneberg",
	"Treptow-Köpenick",
}

// Eras lists the architectural eras offered by the building form.
var Eras = []string{
	"Art Nouveau",
	"Art Deco",
	"Streamline Moderne",
	"Mid Century Modern",
	"Googie/Populuxe",
	"Metabolism",
	"High Tech",
	"Modernism",
	"Postmodernism",
	"Baroque",
	"Contemporary",
	"Brutalism",
	"Bauhaus",
}

// Option is a select entry: the submitted value and its label.
type Option struct {
	Value string
	Label string
}

// NeighbourhoodOptions returns the neighbourhood select entries.
func NeighbourhoodOptions() []Option {
	return optionsFor(Neighbourhoods)
}

// EraOptions returns the era select entries.
func EraOptions() []Option {
	return optionsFor(Eras)
}

func optionsFor(labels []string) []Option {
	options := make([]Option, 0, len(labels))
	for _, label := range labels {
		options = append(options, Option{Value: optionValue(label), Label: label})
	}
	return options
}

func optionValue(label string) string {
	return strings.ToLower(label)
}

func isOption(labels []string, value string) bool {
	return slices.ContainsFunc(labels, func(label string) bool {
		return optionValue(label) == value
	})
}
