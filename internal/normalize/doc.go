// Package normalize holds the pure field cleaners shared by every extraction
// strategy: image URL unwrapping and price rendering.
//
// None of the functions here fail. Input that cannot be understood is returned
// unchanged (or empty) so a single odd field never costs a whole page.
package normalize
