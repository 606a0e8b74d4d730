package zpdf

import (
	"github.com/Lulzx/zpdf/extractor"
	"github.com/Lulzx/zpdf/observability"
	"github.com/Lulzx/zpdf/recovery"
)

// Config controls error policy and extraction behavior for one
// Document.
type Config struct {
	// Policy selects strict, default, or permissive error handling.
	Policy recovery.Policy

	// StructuredCoverageRatio is the share of stream-order length a
	// structure-tree extraction must reach to be trusted. Zero means
	// the default of 0.6.
	StructuredCoverageRatio float64

	// MaxDecompressedSize bounds a single decoded stream. Zero means
	// unbounded.
	MaxDecompressedSize int64

	// Logger receives open and extraction diagnostics. Nil means no
	// logging.
	Logger observability.Logger
}

func DefaultConfig() Config {
	return Config{
		Policy:                  recovery.PolicyDefault,
		StructuredCoverageRatio: extractor.DefaultCoverageRatio,
		Logger:                  observability.NopLogger{},
	}
}

func (c Config) withDefaults() Config {
	if c.StructuredCoverageRatio <= 0 {
		c.StructuredCoverageRatio = extractor.DefaultCoverageRatio
	}
	if c.Logger == nil {
		c.Logger = observability.NopLogger{}
	}
	return c
}
