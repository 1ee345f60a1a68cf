package rank

// Categorize splits ranked entries into the categories their feeds belong to.
// A post lands in every category that lists at least one feed it was seen in.
// Each category keeps the ranked order, truncated to limit; counts hold the
// number of matching posts before truncation. Both maps have a key for every
// category, even when it is empty.
func Categorize(ranked []Entry, feeds map[string][]string, categories map[string][]string, limit int) (byCategory map[string][]Entry, counts map[string]int) {
	byCategory = make(map[string][]Entry, len(categories))
	counts = make(map[string]int, len(categories))

	for name, members := range categories {
		set := make(map[string]bool, len(members))
		for _, m := range members {
			set[m] = true
		}

		matched := []Entry{}
		for _, e := range ranked {
			if inAny(feeds[e.Post.UID], e.FeedUID, set) {
				matched = append(matched, e)
			}
		}
		counts[name] = len(matched)
		byCategory[name] = Top(matched, limit)
	}
	return byCategory, counts
}

func inAny(feeds []string, fallback string, set map[string]bool) bool {
	if set[fallback] {
		return true
	}
	for _, f := range feeds {
		if set[f] {
			return true
		}
	}
	return false
}
