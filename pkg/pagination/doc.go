// Package pagination walks continuation-token paginated endpoints.
//
// The API returns an opaque token with every page that has a successor. The
// walker fetches the first page without a token and then passes each page's
// token back verbatim until a page arrives without one. Pages are fetched
// strictly in sequence because every request depends on the previous token.
//
// Example usage:
//
//	fetcher := pagination.FetcherFunc[Pokemon](func(ctx context.Context, token string) (pagination.Page[Pokemon], error) {
//		// request the page, passing token as the page parameter when non-empty
//	})
//	items, err := pagination.Collect(ctx, fetcher, pagination.Config{Stop: client.ErrNotFound})
//
// The walker:
//   - Stops when a page carries no token
//   - Stops quietly on the configured Stop error, keeping the pages collected so far
//   - Aborts on any other error and discards what was collected
//   - Checks for context cancellation between pages
package pagination
