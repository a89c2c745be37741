package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rewired-gh/sectorflow/internal/logger"
	"github.com/rewired-gh/sectorflow/internal/metrics"
	"github.com/rewired-gh/sectorflow/internal/models"
	"github.com/rewired-gh/sectorflow/internal/monitor"
	"github.com/rewired-gh/sectorflow/internal/telegram"
)

// DigestSource is the snapshot source tag of scheduled digests.
const DigestSource = "digest"

// FeedSource generates the community feed of a date.
type FeedSource interface {
	Generate(asOf time.Time) (models.CommunityFeed, error)
}

// Archive stores feed snapshots.
type Archive interface {
	SaveSnapshot(ctx context.Context, feed models.CommunityFeed, source string) (*models.Snapshot, error)
	Count(ctx context.Context) (int, error)
}

// Comparer reports shifts against earlier snapshots.
type Comparer interface {
	Compare(ctx context.Context, curr models.CommunityFeed) (*monitor.Report, error)
}

// Notifier delivers a digest.
type Notifier interface {
	SendDigest(ctx context.Context, d telegram.Digest) error
}

// DigestJob generates today's feed, compares it with the archive, stores it and
// sends the digest. Notifier and Metrics are optional.
type DigestJob struct {
	Feed     FeedSource
	Archive  Archive
	Comparer Comparer
	Notifier Notifier
	Metrics  *metrics.Registry
	Now      func() time.Time
}

// Name implements Job.
func (j *DigestJob) Name() string {
	return "community_digest"
}

// Run implements Job.
func (j *DigestJob) Run(ctx context.Context) error {
	if err := j.run(ctx); err != nil {
		j.Metrics.ObserveDigest(metrics.ResultError)
		return err
	}
	j.Metrics.ObserveDigest(metrics.ResultOK)
	return nil
}

func (j *DigestJob) run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	feed, err := j.Feed.Generate(now())
	if err != nil {
		return fmt.Errorf("failed to generate feed: %w", err)
	}

	report, err := j.Comparer.Compare(ctx, feed)
	if err != nil {
		return err
	}

	snap, err := j.Archive.SaveSnapshot(ctx, feed, DigestSource)
	if err != nil {
		return fmt.Errorf("failed to archive feed: %w", err)
	}
	if n, err := j.Archive.Count(ctx); err == nil {
		j.Metrics.SetSnapshots(n)
	}
	logger.Info("Archived community feed %s (snapshot %s, %d runners)", feed.AsOf, snap.ID, len(feed.CommunityRunners))

	if j.Notifier == nil {
		return nil
	}
	if err := j.Notifier.SendDigest(ctx, telegram.Digest{Feed: feed, Report: report}); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	logger.Info("Digest for %s sent", feed.AsOf)
	return nil
}
