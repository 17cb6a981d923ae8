package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReadFallbackTimeoutFallsThroughToSecondURL(t *testing.T) {
	cache := NewPreferenceCache(16)
	urls := []string{"https://a.example/repo.git", "https://b.example/repo.git"}

	result := ReadFallback(context.Background(), cache, "cra1", urls, ReadOptions{PerURLTimeout: 30 * time.Millisecond},
		func(ctx context.Context, url string) (string, error) {
			if url == urls[0] {
				<-ctx.Done()
				return "", ctx.Err()
			}
			return "v", nil
		})

	assert.True(t, result.Success)
	assert.Equal(t, urls[1], result.UsedURL)
	assert.Equal(t, "TIMEOUT", result.Attempts[0].ErrorCode)
}

func TestReadFallbackStopsOnNonRetriableError(t *testing.T) {
	urls := []string{"https://a.example/repo.git", "https://b.example/repo.git"}
	calls := 0
	result := ReadFallback(context.Background(), nil, "cra1", urls, ReadOptions{},
		func(ctx context.Context, url string) (string, error) {
			calls++
			return "", errors.New("403 forbidden")
		})

	assert.False(t, result.Success)
	assert.Equal(t, 1, calls)
}

func TestWriteToAllCountsPartitionEntireURLSet(t *testing.T) {
	urls := []string{"u1", "u2", "u3"}
	summary := WriteToAll(context.Background(), urls, WriteOptions{}, func(ctx context.Context, url string) error {
		if url == "u2" {
			return errors.New("network error")
		}
		return nil
	})

	assert.Equal(t, len(urls), summary.SuccessCount+summary.FailureCount)
	assert.True(t, summary.PartialSuccess)
	assert.False(t, summary.Success)
}

func TestPreferenceCacheReordersPreferredFirst(t *testing.T) {
	cache := NewPreferenceCache(16)
	cache.recordSuccess("cra1", "https://b.example/repo.git")

	ordered := cache.reorder("cra1", []string{"https://a.example/repo.git", "https://b.example/repo.git"})
	assert.Equal(t, "https://b.example/repo.git", ordered[0])
}
