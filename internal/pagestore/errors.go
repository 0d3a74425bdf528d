package pagestore

import "errors"

// ErrRootNotFound is returned by ShortestPaths when the root URL is not in
// the store.
var ErrRootNotFound = errors.New("root node not found")
