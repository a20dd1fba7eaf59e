// Package pagination fetches the later pages of a result list in parallel.
//
// The listing service renders results as numbered pages. Once the first
// page has told the caller how many pages exist, the remaining pages are
// independent of each other and can be requested concurrently, as long as
// the number of requests in flight stays bounded.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher[[]parldok.Record](pageFetcher, pagination.DefaultConfig())
//	results := fetcher.FetchAll(ctx, pagination.Pages(plan.PageURLs(endpoint), 2))
//
// The batch fetcher:
//   - Runs every page on a Pool with MaxConcurrency permits (default 30)
//   - Queues excess pages until a permit is released
//   - Settles every page, fulfilled or rejected; a failure never cancels siblings
//   - Converts panics in a page task into rejected settlements
//   - Logs progress and exports parldok_pages_* metrics
package pagination
