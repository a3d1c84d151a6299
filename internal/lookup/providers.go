package lookup

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// DefaultProviderOrder is the built-in priority order.
var DefaultProviderOrder = []string{"autoastat", "bidfax", "statvin", "poctra"}

var builtinProviders = map[string]ProviderSpec{
	"autoastat": {
		Name:        "autoastat",
		DisplayName: "AutoAstat",
		SearchURL:   "https://autoastat.com/en/search/?q=%s",
		LinkMarkers: []string{"/cars/"},
		ImageAllow:  []string{"/upload/", "images"},
	},
	"bidfax": {
		Name:           "bidfax",
		DisplayName:    "Bidfax",
		SearchURL:      "https://bidfax.info/index.php?do=search&subaction=search&story=%s",
		ResultSelector: "#dle-content a[href]",
		LinkMarkers:    []string{".html"},
		ImageAllow:     []string{"/uploads/"},
	},
	"statvin": {
		Name:         "statvin",
		DisplayName:  "Stat.vin",
		SearchURL:    "https://stat.vin/cars/%s",
		DirectRecord: true,
		VINOnly:      true,
	},
	"poctra": {
		Name:        "poctra",
		DisplayName: "Poctra",
		SearchURL:   "https://poctra.com/search/?q=%s",
		LinkMarkers: []string{"/id-"},
	},
}

// BuiltinProvider returns the declaration for a known provider name.
func BuiltinProvider(name string) (ProviderSpec, bool) {
	spec, ok := builtinProviders[strings.ToLower(strings.TrimSpace(name))]
	return spec, ok
}

// BuiltinProviderNames lists the known provider names, sorted.
func BuiltinProviderNames() []string {
	names := make([]string, 0, len(builtinProviders))
	for name := range builtinProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildProviders instantiates providers in the given order. Unknown names are
// a configuration error.
func BuildProviders(names []string, fetcher Fetcher, maxImages int, logger *slog.Logger) ([]Strategy, error) {
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		spec, ok := BuiltinProvider(name)
		if !ok {
			return nil, fmt.Errorf("unknown lookup provider %q (known: %s)", name, strings.Join(BuiltinProviderNames(), ", "))
		}
		strategies = append(strategies, NewHTMLProvider(spec, fetcher, maxImages, logger))
	}
	return strategies, nil
}
