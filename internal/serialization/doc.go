// Package serialization reads and writes the weight containers that supply
// the constant payloads of a bundle.
//
// Two container formats are supported:
//
//	.born         [64-byte fixed header][JSON header][pad to 64][tensor data]
//	              fixed header: magic "BORN", version, flags, header size,
//	              data size, SHA-256 of the tensor data (v2). v1 files
//	              (no checksum, 20-byte preamble) are still readable.
//	.safetensors  [8 bytes: header size (uint64 LE)][JSON header][tensor data]
//
// Tensors are always returned in file order so the enumeration order of
// the constants built from them is reproducible.
//
// The package also owns the offset validation shared with the bundle
// saver's layout reconciliation (ValidateTensorOffsets) and the SHA-256
// helpers used to fingerprint weights files.
//
// Example usage:
//
//	tensors, err := serialization.ReadTensors("model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := serialization.WriteBorn("model.born", tensors, nil); err != nil {
//	    log.Fatal(err)
//	}
package serialization
