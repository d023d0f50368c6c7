// Package collect implements the listing collectors. Both variants fill an
// accumulator that deduplicates by company identity and caps at the run
// target: APICollector pages through a JSON directory endpoint, while
// BrowserCollector drives a rendered listing page through its infinite
// scroll until results stagnate.
package collect
