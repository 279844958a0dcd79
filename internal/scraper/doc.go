// Package scraper reads the weekly "Ugens Uundgåelige" chart from the archive site.
//
// [Parse] turns a chart page into [models.ScrapedRecord] values in page order. [Scraper] fetches the
// page for a decade and keeps a copy on disk so repeated runs can skip the network.
package scraper
