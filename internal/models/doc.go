// Package models defines the domain entities shared by the scraper, resolver, catalog merge and playlist sync.
//
// The package contains three groups of types:
//
// 1. Scraped data
//   - [ScrapedRecord] : one chart entry for one week, already cleaned
//   - [Week] : the week token, parsed into a comparable (year, number) pair
//
// 2. Catalog search data
//   - [CatalogCandidate] : one search result, validated on ingress
//
// 3. Persistent entities
//   - [ResolvedRecord] : a scraped record plus its resolution outcome
//   - [CatalogTable] : all resolved records, most recent week first
//   - [Run] : bookkeeping for one catalog run
package models
