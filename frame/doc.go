// Package frame encodes bulk sample uploads.
//
// Samples are packed to their bit depth (PackSamples), optionally compressed
// (ZstdCompressor), wrapped in a checksummed frame (Encoder) and grouped into
// an envelope (AppendEnvelope) that travels as a single wire message.
//
//	enc := frame.NewEncoder("station-1", frame.Options{})
//	block, _ := frame.PackSamples(samples, 16)
//	f, _ := enc.Pack(block)
//	payload, _ := frame.AppendEnvelope(nil, [][]byte{f})
//
// Every frame of an Encoder carries the same session id and stream hash: they
// identify the upload, not the frame.
package frame
