// Package idp is a client for a document extraction backend.
//
// A Client owns the local view of the user's documents: pending uploads, the
// server listing, simulated processing progress, the detail of the selected
// document, and the outcome of the latest search. Every raw backend response
// passes through a normalizer, so callers only ever see well-formed values.
//
//	c, err := idp.New(ctx,
//		idp.WithBackend("http://localhost:8000"),
//		idp.WithSearchEndpoint("http://localhost:8001/api/search"),
//	)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	if err := c.Documents().Refresh(ctx); err != nil {
//		log.Printf("listing unavailable, keeping last state: %v", err)
//	}
//	snap := c.Documents().Snapshot()
//
// Failures never clear state that was already shown. Trigger methods return
// the error, and the same error is recorded in the detail and search state.
package idp
