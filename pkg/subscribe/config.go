package subscribe

// Config gates the optional stacking/review filters added to every plan.
type Config struct {
	// EnableStackingFilters, when true, adds additional #e/#a+kinds
	// filters for patch-stack discovery.
	EnableStackingFilters bool
}

func Default() Config {
	return Config{EnableStackingFilters: false}
}
