// Package matching decides whether a catalog search result is the same track as a scraped chart entry.
//
// [Score] is a case-insensitive partial ratio: the shorter string is aligned against every window of
// the longer one suggested by its matching blocks, and the best window's indel similarity wins.
// [Ranker] applies the acceptance thresholds to an ordered candidate list, first acceptable candidate wins.
package matching
