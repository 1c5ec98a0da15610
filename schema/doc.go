// Package schema is the payload codec of the Riak PBC protocol.
//
// Message payloads are protocol buffers. Instead of generated structs the
// package keeps a table of message schemas (field number, name, kind) and
// encodes pbc.Body values with protowire. This keeps every message usable
// through one dynamic API:
//
//	payload, err := schema.Default.Encode(pbc.RpbGetReq, pbc.Body{
//	    "bucket": "users",
//	    "key":    "alice",
//	    "r":      "quorum",
//	})
//
//	body, err := schema.Default.Decode(pbc.RpbGetResp, payload)
//	content := body["content"].([]any)[0].(pbc.Body)
//	value := content["value"].([]byte)
//
// # Conversions
//
// Protocol buffers "bytes" fields are text for almost everything (bucket,
// key, content type, index names). They decode as Go strings. Object
// values, vector clocks and data type contexts are binary and stay []byte.
//
// The quorum fields (r, pr, w, pw, dw, rw) accept "one", "quorum", "all" and
// "default" and decode sentinel values back to those names.
//
// ParseContent decodes object values according to their content type.
package schema
