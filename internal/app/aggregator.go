// internal/app/aggregator.go
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"license_notification_bot/internal/domain/license"
)

// RemoteFailurePolicy decides what a failing remote source does to a cycle.
type RemoteFailurePolicy string

const (
	// RemoteFailureSkip logs the failure and continues without the source's records.
	RemoteFailureSkip RemoteFailurePolicy = "skip"
	// RemoteFailureAbort fails the whole load, and with it the cycle.
	RemoteFailureAbort RemoteFailurePolicy = "abort"
)

// Aggregator merges every license source into one collection per cycle.
type Aggregator struct {
	dir     string
	files   license.FileLoader
	remotes []license.Source
	policy  RemoteFailurePolicy
	logger  *logrus.Entry
}

func NewAggregator(
	dir string,
	files license.FileLoader,
	remotes []license.Source,
	policy RemoteFailurePolicy,
	logger *logrus.Entry,
) *Aggregator {
	if policy == "" {
		policy = RemoteFailureSkip
	}
	return &Aggregator{
		dir:     dir,
		files:   files,
		remotes: remotes,
		policy:  policy,
		logger:  logger,
	}
}

// LoadAll reads every regular file directly under the source directory, then
// each configured remote source, and returns the concatenated records.
// Per-file failures are logged and skipped. Remote failures follow the policy.
func (a *Aggregator) LoadAll(ctx context.Context) ([]license.Record, error) {
	records := a.loadDirectory()

	for _, src := range a.remotes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remoteRecords, err := src.Load(ctx)
		if err != nil {
			if a.policy == RemoteFailureAbort {
				return nil, fmt.Errorf("remote source %s: %w", src.Name(), err)
			}
			a.logger.WithError(err).WithField("source", src.Name()).Warn("Failed to load remote license source, skipping it")
			continue
		}
		a.logger.WithFields(logrus.Fields{
			"source":  src.Name(),
			"records": len(remoteRecords),
		}).Debug("Remote license source loaded")
		records = append(records, remoteRecords...)
	}

	return records, nil
}

func (a *Aggregator) loadDirectory() []license.Record {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		a.logger.WithError(err).WithField("dir", a.dir).Error("Failed to list license directory")
		return []license.Record{}
	}

	records := []license.Record{}
	for _, entry := range entries {
		path := filepath.Join(a.dir, entry.Name())

		info, err := os.Stat(path)
		if err != nil {
			a.logger.WithError(err).WithField("file", entry.Name()).Warn("Failed to stat license file, skipping it")
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		fileRecords, err := a.files.LoadFile(path)
		if err != nil {
			a.logger.WithError(err).WithField("file", entry.Name()).Warn("Failed to load license file, skipping it")
			continue
		}
		records = append(records, fileRecords...)
	}
	return records
}
