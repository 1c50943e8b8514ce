package adapters

// NOTE: If build bloat becomes a concern for unused catalogs
// look into build tags i.e. +build !nohttp

type BuiltInCatalogType = string

const (
	HTTPCatalogType BuiltInCatalogType = "http"
)

// RegisterBuiltins registers all built-in catalog providers by default
// or only the specific ones if keys are provided
func RegisterBuiltins(r *Registry, catalogs ...BuiltInCatalogType) {
	if len(catalogs) == 0 {
		// Include all built-in catalogs here when adding implementations
		catalogs = append(catalogs, HTTPCatalogType)
	}

	for _, key := range catalogs {
		switch key {
		case HTTPCatalogType:
			RegisterHTTP(r)
		}
	}
}
