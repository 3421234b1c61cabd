// Package fileutil prepares and cleans up node working directories: creating
// them, writing files atomically, removing generated state, and holding an
// exclusive lock on a directory while a node uses it.
package fileutil
