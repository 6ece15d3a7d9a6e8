package render

import "strings"

// Predicate decides whether a binding applies to a lower-cased topic name
type Predicate func(lowerName string) bool

// Contains matches when the name contains kw
func Contains(kw string) Predicate {
	kw = strings.ToLower(kw)
	return func(n string) bool { return strings.Contains(n, kw) }
}

// Equals matches the whole name
func Equals(name string) Predicate {
	name = strings.ToLower(name)
	return func(n string) bool { return strings.TrimSpace(n) == name }
}

// AllOf matches when every predicate matches
func AllOf(ps ...Predicate) Predicate {
	return func(n string) bool {
		for _, p := range ps {
			if !p(n) {
				return false
			}
		}
		return true
	}
}

// AnyOf matches when at least one predicate matches
func AnyOf(ps ...Predicate) Predicate {
	return func(n string) bool {
		for _, p := range ps {
			if p(n) {
				return true
			}
		}
		return false
	}
}

// Binding pairs a predicate with the template it selects
type Binding struct {
	Match    Predicate
	Template Template
}

// TemplateTable is evaluated top to bottom; the first matching binding wins
// and Default catches every other topic
type TemplateTable struct {
	Bindings []Binding
	Default  Template
}

// Match returns the template for a topic name. It never fails.
func (t TemplateTable) Match(topicName string) Template {
	lower := strings.ToLower(strings.TrimSpace(topicName))
	for _, b := range t.Bindings {
		if b.Match != nil && b.Match(lower) {
			return b.Template
		}
	}
	return t.Default
}

// IDs lists template ids in evaluation order, default last
func (t TemplateTable) IDs() []string {
	ids := make([]string, 0, len(t.Bindings)+1)
	for _, b := range t.Bindings {
		ids = append(ids, b.Template.ID)
	}
	return append(ids, t.Default.ID)
}

// DefaultTable is the built-in keyword table
func DefaultTable() TemplateTable {
	return TemplateTable{
		Bindings: []Binding{
			{AllOf(Contains("pascal"), Contains("triangle")), pascalTriangle},
			{Contains("fibonacci"), fibonacci},
			{AnyOf(Contains("pythagoras"), Contains("pythagorean")), pythagorean},
			{AnyOf(Equals("pi"), Contains("π")), piTemplate},
			{AllOf(Contains("euler"), AnyOf(Contains("identity"), Contains("formula"))), eulerIdentity},
			{AnyOf(Contains("golden ratio"), Contains("phi")), goldenRatio},
			{Contains("prime"), primes},
			{AnyOf(Contains("fractal"), Contains("mandelbrot")), fractal},
			{AnyOf(Contains("circle"), Contains("sphere")), circle},
			{Contains("quadratic"), quadratic},
		},
		Default: generic,
	}
}
