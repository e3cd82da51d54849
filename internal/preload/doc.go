// ABOUTME: Preload cache package documentation
// ABOUTME: Describes the LRU bound and worker pool
// Package preload keeps decoded cue audio in memory ahead of playback.
//
// A Cache is a byte-bounded LRU keyed by normalized file path. Background
// preloads run on a small fixed worker pool so that bulk requests never
// starve a synchronous load for a cue that is about to play. When pressure
// awareness is on, the bound also tracks available system memory minus a
// reserve and is re-evaluated on every eviction pass.
package preload
