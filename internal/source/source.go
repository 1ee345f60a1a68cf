package source

import (
	"context"
	"fmt"

	"github.com/voroninsergei/askbrain/internal/feed"
)

// FeedClient fetches every post of a feed.
type FeedClient interface {
	// FetchAllPosts pages through the feed until the API reports no next slice
	// and returns the posts in source order.
	FetchAllPosts(ctx context.Context, feedUID string) ([]feed.Post, error)
}

// FetchMultiple fetches the given feeds one after another and stops at the
// first failure.
func FetchMultiple(ctx context.Context, client FeedClient, feedUIDs []string) (map[string][]feed.Post, error) {
	results := make(map[string][]feed.Post, len(feedUIDs))
	for _, uid := range feedUIDs {
		posts, err := client.FetchAllPosts(ctx, uid)
		if err != nil {
			return results, fmt.Errorf("feed %s: %w", uid, err)
		}
		results[uid] = posts
	}
	return results, nil
}
