// Package enrich fills founder names onto collected records by visiting
// each company's detail page. Pages are fetched statically first and
// promoted to a headless render only when the static HTML looks like an
// unrendered shell and yielded nothing.
package enrich
