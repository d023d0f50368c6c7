// Package directory defines the core types shared across subsystems: the
// startup record, the collection strategy picked by the source resolver, the
// duplicate-identity set, and the retry/pacing policies used whenever the
// scraper talks to a remote service.
package directory
