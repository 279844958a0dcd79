package scraper

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/desertthunder/unavoidables/internal/models"
	"github.com/desertthunder/unavoidables/internal/shared"
)

// unlinkedWeeks is how many of the most recent week headers carry their label as plain text.
// Older headers wrap the label in a link.
const unlinkedWeeks = 948

var cleaner = strings.NewReplacer("\u00a0", " ", "\u2019", "'")

// Parse extracts one record per chart week from the page in r.
//
// Returns [shared.ErrMalformedPage] when the page has no content block or its columns disagree, and
// [shared.ErrMalformedRecord] when a week has no title.
func Parse(r io.Reader) ([]models.ScrapedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedPage, err)
	}

	content := doc.Find("#content").First()
	if content.Length() == 0 {
		return nil, fmt.Errorf("%w: no #content element", shared.ErrMalformedPage)
	}

	weeks := weekLabels(content.Find("th.week-info"), unlinkedWeeks)
	wide := sideTimes(content.Find("span.time--wide"))
	narrow := sideTimes(content.Find("span.time--narrow"))
	mains := content.Find("td.main")

	if len(weeks) != len(wide) || len(weeks) != len(narrow) || len(weeks) != mains.Length() {
		return nil, fmt.Errorf("%w: %d weeks, %d wide times, %d narrow times, %d tracks",
			shared.ErrMalformedPage, len(weeks), len(wide), len(narrow), mains.Length())
	}

	records := make([]models.ScrapedRecord, 0, len(weeks))
	var parseErr error
	mains.EachWithBreak(func(i int, s *goquery.Selection) bool {
		title, ok := trackTitle(s)
		if !ok {
			parseErr = fmt.Errorf("%w: week %q has no track title", shared.ErrMalformedRecord, weeks[i])
			return false
		}

		records = append(records, models.ScrapedRecord{
			Title:      title,
			Artists:    artistNames(s),
			Week:       weeks[i],
			TimeWide:   wide[i],
			TimeNarrow: narrow[i],
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return records, nil
}

// weekLabels reads the header labels. Only the last unlinked headers use their own text.
func weekLabels(headers *goquery.Selection, unlinked int) []string {
	linked := headers.Length() - unlinked
	labels := make([]string, 0, headers.Length())

	headers.Each(func(i int, th *goquery.Selection) {
		label := th
		if i < linked {
			if a := th.Find("a").First(); a.Length() > 0 {
				label = a
			}
		}
		labels = append(labels, models.PadWeek(clean(label.Text())))
	})
	return labels
}

// sideTimes keeps the spans that sit in a "side" cell, directly or one level down.
func sideTimes(spans *goquery.Selection) []string {
	var times []string
	spans.Each(func(_ int, s *goquery.Selection) {
		if lastClass(s.Parent()) == "side" || lastClass(s.Parent().Parent()) == "side" {
			times = append(times, strings.TrimSpace(s.Text()))
		}
	})
	return times
}

func lastClass(s *goquery.Selection) string {
	classes := strings.Fields(s.AttrOr("class", ""))
	if len(classes) == 0 {
		return ""
	}
	return classes[len(classes)-1]
}

func trackTitle(main *goquery.Selection) (string, bool) {
	if a := main.Find("a.track").First(); a.Length() > 0 {
		return clean(a.Text()), true
	}
	if em := main.Find("em.anontrack").First(); em.Length() > 0 {
		return clean(em.Text()), true
	}
	return "", false
}

func artistNames(main *goquery.Selection) []string {
	artists := []string{}
	main.Find("a.artist").Each(func(_ int, a *goquery.Selection) {
		artists = append(artists, clean(a.Text()))
	})
	return artists
}

func clean(s string) string {
	return strings.TrimSpace(cleaner.Replace(s))
}
