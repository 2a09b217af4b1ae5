// Package ir holds the finalized function representation that the bundle
// saver packages.
//
// A Function is a flat, creation-ordered list of named values. Each value
// lives in exactly one memory region:
//
//	Constant    weights baked into the bundle's weights file
//	Mutable     placeholders (inputs and outputs) supplied by the caller
//	Activation  scratch memory owned by the compiled code
//
// Tensor views alias a byte range of another value and share its region.
// Values are identified by a stable ValueID, never by pointer identity, so an
// allocation plan can be keyed by ID and handed across package boundaries.
package ir
