// Package logger builds *slog.Logger instances with a small set of functional
// options and provides attribute helpers that keep key names consistent across
// the search packages.
//
// New selects slog.NewJSONHandler or slog.NewTextHandler, applies static
// attributes and wraps the handler with LogHandlerDecorator so that values
// stored in a context.Context (for example the opaque id of a search request)
// are attached to every record logged with a *Context method.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment("production", "indexer"),
//	    logger.WithContextExtractors(opaqueid.LoggerExtractor()),
//	)
//
//	log.ErrorContext(ctx, "bulk request failed",
//	    logger.Cluster("c1"),
//	    logger.Index("articles"),
//	    logger.Error(err),
//	)
//
// Error, Errors and DocID return an empty slog.Attr for nil or blank input,
// which slog omits, so callers do not need to guard them.
package logger
