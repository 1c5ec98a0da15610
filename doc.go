// Package riakpb is a client for the Riak Protocol Buffers interface.
//
// A Client owns one connection and sends one request at a time, in
// submission order. Responses spanning several frames are either merged into
// a single body (Do) or handed out frame by frame (Stream). A Pool spreads
// requests over several clients and nodes.
//
// Request parameters and response bodies are pbc.Body maps; package schema
// documents the field names of every message.
//
//	client, err := riakpb.NewClient(riakpb.Config{Addr: "127.0.0.1:8087"})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	obj, err := client.Get(ctx, pbc.Body{"bucket": "users", "key": "alice"})
package riakpb
