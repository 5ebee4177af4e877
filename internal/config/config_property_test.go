//go:build property

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/spf13/viper"
)

func TestConfigurationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("defaults are valid", prop.ForAll(
		func() bool {
			var cfg Config
			viper.Reset()
			applyDefaults(&cfg)
			return validateConfig(&cfg) == nil
		},
	))

	properties.Property("extensions are normalized once", prop.ForAll(
		func(ext string) bool {
			once := withDot(ext)
			return withDot(once) == once && strings.HasPrefix(once, ".") &&
				validateExtension(once) == nil
		},
		gen.RegexMatch(`^\.?[a-z][a-z0-9]{0,5}$`),
	))

	properties.Property("qualified identifiers are valid entries", prop.ForAll(
		func(pkg, name string) bool {
			return validateEntry(name) == nil && validateEntry(pkg+"."+name) == nil
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("paths with traversal are rejected", prop.ForAll(
		func(prefix, suffix string) bool {
			return validatePath("../"+prefix+"/"+suffix) != nil
		},
		gen.Identifier(),
		gen.Identifier(),
	))

	properties.Property("negative debounce is rejected", prop.ForAll(
		func(ms int64) bool {
			var cfg Config
			viper.Reset()
			applyDefaults(&cfg)
			cfg.Watch.Debounce = -time.Duration(ms) * time.Millisecond
			return validateConfig(&cfg) != nil
		},
		gen.Int64Range(1, 10000),
	))

	properties.TestingRun(t)
}
