package rank

import (
	"sort"
)

// Overlap is a post that appeared in more than one feed.
type Overlap struct {
	UID   string
	Title string
	Feeds []string // distinct feeds, sorted
}

// FeedsByUID maps every uid to the distinct feeds that carried it, in the
// order they were seen.
func FeedsByUID(entries []Entry) map[string][]string {
	feeds := make(map[string][]string)
	for _, e := range entries {
		if !contains(feeds[e.Post.UID], e.FeedUID) {
			feeds[e.Post.UID] = append(feeds[e.Post.UID], e.FeedUID)
		}
	}
	return feeds
}

// FindOverlap reports posts seen in minFeeds or more distinct feeds.
func FindOverlap(entries []Entry, minFeeds int) []Overlap {
	if minFeeds < 2 {
		minFeeds = 2
	}

	titles := make(map[string]string)
	for _, e := range entries {
		if e.Post.Title != "" {
			titles[e.Post.UID] = e.Post.Title
		}
	}

	var overlaps []Overlap
	for uid, feeds := range FeedsByUID(entries) {
		if len(feeds) < minFeeds {
			continue
		}
		sorted := append([]string(nil), feeds...)
		sort.Strings(sorted)
		overlaps = append(overlaps, Overlap{UID: uid, Title: titles[uid], Feeds: sorted})
	}

	// Most feeds first, then uid
	sort.Slice(overlaps, func(i, j int) bool {
		if len(overlaps[i].Feeds) != len(overlaps[j].Feeds) {
			return len(overlaps[i].Feeds) > len(overlaps[j].Feeds)
		}
		return overlaps[i].UID < overlaps[j].UID
	})

	return overlaps
}

// AlsoIn returns, for each ranked entry carried by several feeds, the feeds
// other than the one the entry was kept from.
func AlsoIn(ranked []Entry, feeds map[string][]string) map[string][]string {
	out := make(map[string][]string)
	for _, e := range ranked {
		var others []string
		for _, f := range feeds[e.Post.UID] {
			if f != e.FeedUID {
				others = append(others, f)
			}
		}
		if len(others) > 0 {
			sort.Strings(others)
			out[e.Post.UID] = others
		}
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
