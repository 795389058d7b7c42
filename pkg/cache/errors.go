package cache

import (
	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// Sentinel errors for caching operations.
var (
	// ErrCorrupt is returned by [Decode] when a cache file is truncated,
	// contains an unparsable number, or references a node that does not
	// exist. It carries the CORRUPT_CACHE code.
	ErrCorrupt = perrors.New(perrors.ErrCodeCorruptCache, "corrupt cache")

	// ErrSourceIsCache is returned by [FileCache.Save] when the source path
	// and its cache path coincide (a source named "x.txt").
	ErrSourceIsCache = perrors.New(perrors.ErrCodeInvalidPath, "source file would be overwritten by its cache")
)
