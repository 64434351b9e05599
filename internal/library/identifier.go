package library

import (
	"regexp"
	"strings"

	"github.com/nao1215/jsrecon/internal/model"
)

// banner is one entry of the library table. Name is the npm package name
// used for advisory lookups.
type banner struct {
	Name    string
	Pattern *regexp.Regexp
}

// banners is matched in order; the output follows this order.
var banners = []banner{
	{Name: "jquery", Pattern: regexp.MustCompile(`jQuery v([0-9.]+)`)},
	{Name: "angular", Pattern: regexp.MustCompile(`AngularJS v([0-9.]+)`)},
	{Name: "react", Pattern: regexp.MustCompile(`React v([0-9.]+)`)},
	{Name: "vue", Pattern: regexp.MustCompile(`Vue\.js v([0-9.]+)`)},
	{Name: "bootstrap", Pattern: regexp.MustCompile(`Bootstrap v([0-9.]+)`)},
	{Name: "lodash", Pattern: regexp.MustCompile(`lodash v([0-9.]+)`)},
	{Name: "moment", Pattern: regexp.MustCompile(`moment\.js v([0-9.]+)`)},
	{Name: "axios", Pattern: regexp.MustCompile(`axios v([0-9.]+)`)},
	{Name: "express", Pattern: regexp.MustCompile(`Express v([0-9.]+)`)},
	{Name: "d3", Pattern: regexp.MustCompile(`D3 v([0-9.]+)`)},
	{Name: "underscore", Pattern: regexp.MustCompile(`Underscore\.js v([0-9.]+)`)},
	{Name: "backbone", Pattern: regexp.MustCompile(`Backbone\.js v([0-9.]+)`)},
	{Name: "chart.js", Pattern: regexp.MustCompile(`Chart\.js v([0-9.]+)`)},
	{Name: "socket.io", Pattern: regexp.MustCompile(`Socket\.IO v([0-9.]+)`)},
	{Name: "three", Pattern: regexp.MustCompile(`Three\.js v([0-9.]+)`)},
	{Name: "redux", Pattern: regexp.MustCompile(`Redux v([0-9.]+)`)},
	{Name: "vuex", Pattern: regexp.MustCompile(`Vuex v([0-9.]+)`)},
	{Name: "next", Pattern: regexp.MustCompile(`Next\.js v([0-9.]+)`)},
	{Name: "nuxt", Pattern: regexp.MustCompile(`Nuxt\.js v([0-9.]+)`)},
}

// Identifier finds library banners in code. It is stateless and safe for
// concurrent use.
type Identifier struct{}

// NewIdentifier creates an Identifier.
func NewIdentifier() *Identifier {
	return &Identifier{}
}

// Identify returns every library banner found in content, deduplicated by
// name@version, in table order and then order of appearance.
func (i *Identifier) Identify(content string) []model.LibrarySignature {
	var result []model.LibrarySignature
	seen := make(map[string]bool)

	for _, b := range banners {
		for _, m := range b.Pattern.FindAllStringSubmatch(content, -1) {
			version := strings.TrimRight(m[1], ".")
			if version == "" {
				continue
			}
			key := b.Name + "@" + version
			if seen[key] {
				continue
			}
			seen[key] = true
			result = append(result, model.LibrarySignature{Name: b.Name, Version: version})
		}
	}

	return result
}

// Names returns the npm package names the Identifier knows, in table order.
func Names() []string {
	names := make([]string, len(banners))
	for i, b := range banners {
		names[i] = b.Name
	}
	return names
}
