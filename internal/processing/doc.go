// Package processing applies the per-photo transform to a session's staged
// JPGs, writing processed_<name> files into the processed folder.
//
// Photos are handled sequentially in file-name order, which matches capture
// order because asset names embed the UTC capture time. A photo that fails
// to transform is logged and skipped; the batch always runs to the end.
// Re-running over the same folder overwrites earlier outputs in place.
package processing
