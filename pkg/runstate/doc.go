// Package runstate keeps the state shared between indexing runs in Redis.
//
// Two keys are used:
//
//   - parldok:run:last holds the JSON report of the most recent run and
//     expires after ReportTTL (default 7 days)
//   - parldok:run:lock is taken with SET NX before a run starts, so that two
//     triggers never scrape the upstream at the same time; it expires after
//     LockTTL in case the holder dies
//
// # Basic Usage
//
//	manager := runstate.NewManager(redisClient, runstate.DefaultConfig())
//
//	lock, err := manager.AcquireLock(ctx)
//	if errors.Is(err, runstate.ErrLocked) {
//		// another run is in progress
//	}
//	defer lock.Release(context.Background())
//
//	records, report, err := ix.Run(ctx)
//	_ = manager.SaveReport(ctx, report)
//
// Redis is optional for the service; without it no lock is taken and no
// report is kept.
package runstate
