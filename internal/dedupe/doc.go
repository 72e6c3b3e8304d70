// Package dedupe tracks applied stream event ids in a time-based cache so
// that replayed or re-delivered events are applied at most once.
package dedupe
