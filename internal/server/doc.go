// Package server provides HTTP routing, middleware, and the JSON API for
// subscription management.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # API Handler
//
// [APIHandler] implements the [Handler] interface and serves the JSON API:
// subscription and folder management, video actions, synchronization
// triggers, and the push notification webhook that feeds single new items
// into the reconciler without a full pass.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
