// Package leasing is a multi-instance, Postgres-backed partition lease
// coordinator that sits above supplier.Supplier: it decides which process
// reads which partition when several processes share one stream.
//
// Coordinator only ever assigns and seeks the partitions it leases — it
// never touches cursors or sequence numbers, so checkpointing stays
// entirely with the supplier's caller.
package leasing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	supplier "github.com/dbubel/kinesis-supplier"
)

// Coordinator leases partitions of a stream across multiple Supplier
// instances (one per process/host) backed by a shared Postgres table.
type Coordinator struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewCoordinator wraps an already-connected *sqlx.DB.
func NewCoordinator(db *sqlx.DB, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
	}
	return &Coordinator{db: db, logger: logger}
}

// Schema is the lease table DDL, left to the caller to run via their own
// migration tooling rather than applied implicitly at construction.
const Schema = `
CREATE TABLE IF NOT EXISTS partition_leases (
	stream_id    text NOT NULL,
	partition_id text NOT NULL,
	owner        text,
	leased_at    timestamptz,
	PRIMARY KEY (stream_id, partition_id)
);
`

// SyncPartitions upserts a lease row for every partition id, so newly
// discovered shards (from a split, for instance) become leasable.
func (c *Coordinator) SyncPartitions(ctx context.Context, streamID string, partitionIDs []string) error {
	for _, id := range partitionIDs {
		_, err := c.db.ExecContext(
			ctx,
			`INSERT INTO partition_leases (stream_id, partition_id) VALUES ($1, $2)
			 ON CONFLICT (stream_id, partition_id) DO NOTHING`,
			streamID, id,
		)
		if err != nil {
			return fmt.Errorf("sync partition %s/%s: %w", streamID, id, err)
		}
	}
	return nil
}

// AcquireAvailable claims one unleased partition from partitionIDs for
// owner. SELECT ... FOR UPDATE SKIP LOCKED lets each caller fall through to
// the next free row instead of blocking on one another caller is already
// examining, so two concurrent callers cannot deadlock over the same
// candidate row set. Returns sql.ErrNoRows if nothing is free.
func (c *Coordinator) AcquireAvailable(ctx context.Context, streamID string, partitionIDs []string, owner string) (string, error) {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	query, args, err := sqlx.In(
		`SELECT partition_id FROM partition_leases
		 WHERE stream_id = ? AND owner IS NULL AND partition_id IN (?)
		 ORDER BY partition_id
		 LIMIT 1
		 FOR UPDATE SKIP LOCKED`,
		streamID, partitionIDs,
	)
	if err != nil {
		return "", err
	}
	query = tx.Rebind(query)

	var partitionID string
	if err := tx.GetContext(ctx, &partitionID, query, args...); err != nil {
		return "", err
	}

	_, err = tx.ExecContext(
		ctx,
		`UPDATE partition_leases SET owner = $1, leased_at = now() WHERE stream_id = $2 AND partition_id = $3`,
		owner, streamID, partitionID,
	)
	if err != nil {
		return "", err
	}

	return partitionID, tx.Commit()
}

// Release gives up owner's lease on partitionID.
func (c *Coordinator) Release(ctx context.Context, streamID, partitionID, owner string) error {
	_, err := c.db.ExecContext(
		ctx,
		`UPDATE partition_leases SET owner = NULL, leased_at = now()
		 WHERE stream_id = $1 AND partition_id = $2 AND owner = $3`,
		streamID, partitionID, owner,
	)
	return err
}

// Run acquires as many leases as it can (up to len(partitionIDs)) for
// owner, assigns each leased partition onto sup starting from
// TrimHorizon, and releases it again when ctx is canceled.
//
// Each goroutine below calls sup.AddAssignment/RemoveAssignment rather than
// composing sup.GetAssignment with a full-replace sup.Assign: with one
// goroutine per leased partition racing the same Supplier, a read-modify-
// write over the whole assignment set would let a later Assign silently
// unassign a partition a concurrent goroutine just leased.
func (c *Coordinator) Run(ctx context.Context, streamID string, partitionIDs []string, owner string, sup *supplier.Supplier) error {
	if err := c.SyncPartitions(ctx, streamID, partitionIDs); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	for range partitionIDs {
		g.Go(func() error {
			partitionID, err := c.AcquireAvailable(gctx, streamID, partitionIDs, owner)
			if err == sql.ErrNoRows {
				return nil
			}
			if err != nil {
				return err
			}

			p := supplier.StreamPartition{StreamID: streamID, PartitionID: partitionID}
			defer func() {
				if err := sup.RemoveAssignment(p); err != nil {
					c.logger.WithError(err).WithField("partition", partitionID).Error("failed to remove assignment on release")
				}

				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := c.Release(releaseCtx, streamID, partitionID, owner); err != nil {
					c.logger.WithError(err).WithField("partition", partitionID).Error("failed to release lease")
				}
			}()

			if err := sup.AddAssignment(p); err != nil {
				return err
			}
			if err := sup.SeekToEarliest(gctx, map[supplier.StreamPartition]struct{}{p: {}}); err != nil {
				return err
			}

			<-gctx.Done()
			return nil
		})
	}

	return g.Wait()
}
