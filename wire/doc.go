// Package wire provides the low-level wire protocol of the rsp stream store.
//
// This package serves as a foundation for the rsp client (pooling, pipelines,
// uploads). It focuses on correctness of framing and decoding without imposing
// connection management on callers.
//
// # Framing
//
// Every request and every response is a single message: an 8-byte little-endian
// unsigned length followed by exactly that many payload bytes.
//
//	err := wire.WriteMessage(bw, append([]byte("PING"), 0))
//	payload, err := wire.ReadMessage(br, wire.DefaultMaxMessageSize)
//
// # Responses
//
// A response payload is a msgpack array whose first element is a type tag
// ("int", "string", "u16v", ...). Decode turns it into a Value:
//
//	v, err := wire.Decode(payload)
//	switch v := v.(type) {
//	case wire.Int:
//	    ...
//	case wire.List:
//	    ...
//	}
//
// An "error" tagged response never produces a Value. It is returned as a
// *ServerError.
//
// # Error Handling
//
// The package defines error types that indicate connection state:
//
//   - ConnectionError: I/O failure, the connection is broken, CLOSE it
//   - DecodeError: the message was fully read but is malformed, connection can be REUSED
//   - ServerError: the server reported a failure, connection can be REUSED
//
// Use ShouldCloseConnection to determine error handling strategy:
//
//	if err != nil {
//	    if wire.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
package wire
