package riakpb

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"maps"

	"github.com/pior/riakpb/pbc"
)

// Requester sends one logical request. Client and Pool implement it.
type Requester interface {
	// Do sends a request and returns the merged response.
	Do(ctx context.Context, t pbc.MessageType, params pbc.Body, expectMultiple bool) (pbc.Body, error)

	// Stream sends a request whose response frames are delivered one by one.
	Stream(ctx context.Context, t pbc.MessageType, params pbc.Body) *Stream
}

// Commands provides the Riak operations.
// This struct can be used independently with any Requester,
// and is embedded in Client and Pool.
//
// Parameters and results are message bodies as produced by the payload codec,
// see package schema for field names and conversions.
type Commands struct {
	requester Requester
}

// NewCommands creates a new Commands instance sending through r.
func NewCommands(r Requester) *Commands {
	return &Commands{requester: r}
}

func (c *Commands) do(ctx context.Context, t pbc.MessageType, params pbc.Body) (pbc.Body, error) {
	return c.requester.Do(ctx, t, params, false)
}

// with returns a copy of params with key set.
func with(params pbc.Body, key string, value any) pbc.Body {
	out := maps.Clone(params)
	if out == nil {
		out = pbc.Body{}
	}
	out[key] = value
	return out
}

// Ping checks that the server answers.
func (c *Commands) Ping(ctx context.Context) error {
	_, err := c.do(ctx, pbc.RpbPingReq, nil)
	return err
}

// GetClientID returns the client id of the connection.
func (c *Commands) GetClientID(ctx context.Context) (string, error) {
	body, err := c.do(ctx, pbc.RpbGetClientIdReq, nil)
	if err != nil {
		return "", err
	}
	id, _ := body["client_id"].(string)
	return id, nil
}

// SetClientID sets the client id of the connection.
func (c *Commands) SetClientID(ctx context.Context, id string) error {
	_, err := c.do(ctx, pbc.RpbSetClientIdReq, pbc.Body{"client_id": id})
	return err
}

// ServerInfo identifies the server node.
type ServerInfo struct {
	Node          string
	ServerVersion string
}

// GetServerInfo returns the node name and version of the server.
func (c *Commands) GetServerInfo(ctx context.Context) (ServerInfo, error) {
	body, err := c.do(ctx, pbc.RpbGetServerInfoReq, nil)
	if err != nil {
		return ServerInfo{}, err
	}
	node, _ := body["node"].(string)
	version, _ := body["server_version"].(string)
	return ServerInfo{Node: node, ServerVersion: version}, nil
}

// Get fetches an object. params: bucket, key and optionally type, r, pr,
// notfound_ok, head, ... The siblings are in the "content" field, an empty
// body means not found. Use schema.ParseContent to decode the values.
func (c *Commands) Get(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	return c.do(ctx, pbc.RpbGetReq, params)
}

// Put stores an object. params: bucket, key (omitted to let the server
// generate one), content, vclock, w, dw, return_body, ...
func (c *Commands) Put(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	return c.do(ctx, pbc.RpbPutReq, params)
}

// Del deletes an object.
func (c *Commands) Del(ctx context.Context, params pbc.Body) error {
	_, err := c.do(ctx, pbc.RpbDelReq, params)
	return err
}

// ListBuckets lists the buckets, optionally of a bucket type.
func (c *Commands) ListBuckets(ctx context.Context, params pbc.Body) ([]string, error) {
	body, err := c.requester.Do(ctx, pbc.RpbListBucketsReq, with(params, "stream", true), true)
	if err != nil {
		return nil, err
	}
	return stringList(body["buckets"]), nil
}

// ListKeys lists every key of a bucket.
func (c *Commands) ListKeys(ctx context.Context, params pbc.Body) ([]string, error) {
	body, err := c.requester.Do(ctx, pbc.RpbListKeysReq, params, true)
	if err != nil {
		return nil, err
	}
	return stringList(body["keys"]), nil
}

// StreamKeys lists the keys of a bucket, one item per server batch with the
// batch in its "keys" field.
func (c *Commands) StreamKeys(ctx context.Context, params pbc.Body) *Stream {
	return c.requester.Stream(ctx, pbc.RpbListKeysReq, params)
}

// GetBucket returns the properties of a bucket.
func (c *Commands) GetBucket(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	body, err := c.do(ctx, pbc.RpbGetBucketReq, params)
	if err != nil {
		return nil, err
	}
	props, _ := body["props"].(pbc.Body)
	return props, nil
}

// SetBucket sets the properties of a bucket. params: bucket, props, type.
func (c *Commands) SetBucket(ctx context.Context, params pbc.Body) error {
	_, err := c.do(ctx, pbc.RpbSetBucketReq, params)
	return err
}

// ResetBucket restores the default properties of a bucket.
func (c *Commands) ResetBucket(ctx context.Context, params pbc.Body) error {
	_, err := c.do(ctx, pbc.RpbResetBucketReq, params)
	return err
}

// GetBucketType returns the properties of a bucket type.
func (c *Commands) GetBucketType(ctx context.Context, bucketType string) (pbc.Body, error) {
	body, err := c.do(ctx, pbc.RpbGetBucketTypeReq, pbc.Body{"type": bucketType})
	if err != nil {
		return nil, err
	}
	props, _ := body["props"].(pbc.Body)
	return props, nil
}

// SetBucketType sets the properties of a bucket type.
func (c *Commands) SetBucketType(ctx context.Context, bucketType string, props pbc.Body) error {
	_, err := c.do(ctx, pbc.RpbSetBucketTypeReq, pbc.Body{"type": bucketType, "props": props})
	return err
}

// MapReduce runs a map/reduce job and returns the rows of every phase.
// params: request (the job, usually JSON) and content_type.
func (c *Commands) MapReduce(ctx context.Context, params pbc.Body) ([]any, error) {
	var rows []any
	for row, err := range c.StreamMapReduce(ctx, params) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// StreamMapReduce runs a map/reduce job and yields its rows as they arrive.
// Each response frame carries a JSON array of rows in its "response" field.
func (c *Commands) StreamMapReduce(ctx context.Context, params pbc.Body) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		s := c.requester.Stream(ctx, pbc.RpbMapRedReq, params)
		defer s.Close()

		for item, err := range s.All(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}

			response, ok := item["response"].(string)
			if !ok {
				continue
			}

			var rows []any
			if err := json.Unmarshal([]byte(response), &rows); err != nil {
				yield(nil, fmt.Errorf("riakpb: map/reduce phase %v: %w", item["phase"], err))
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
		}
	}
}

// GetIndex queries a secondary index. The result merges the "keys" (or
// "results" with return_terms) of every frame, plus the "continuation" for
// paginated queries.
func (c *Commands) GetIndex(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	return c.requester.Do(ctx, pbc.RpbIndexReq, with(params, "stream", true), true)
}

// StreamIndex queries a secondary index, one item per server batch.
func (c *Commands) StreamIndex(ctx context.Context, params pbc.Body) *Stream {
	return c.requester.Stream(ctx, pbc.RpbIndexReq, with(params, "stream", true))
}

// Search runs a full-text query. params: q, index, rows, start, sort, ...
func (c *Commands) Search(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	return c.do(ctx, pbc.RpbSearchQueryReq, params)
}

// GetCounter returns the value of a legacy counter.
func (c *Commands) GetCounter(ctx context.Context, params pbc.Body) (int64, error) {
	body, err := c.do(ctx, pbc.RpbCounterGetReq, params)
	if err != nil {
		return 0, err
	}
	v, _ := body["value"].(int64)
	return v, nil
}

// UpdateCounter increments a legacy counter by params["amount"]. The new
// value is in "value" when returnvalue is set.
func (c *Commands) UpdateCounter(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	return c.do(ctx, pbc.RpbCounterUpdateReq, params)
}

// FetchDatatype fetches a CRDT (counter, set, map, hll, gset).
func (c *Commands) FetchDatatype(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	return c.do(ctx, pbc.DtFetchReq, params)
}

// UpdateDatatype applies an operation to a CRDT.
func (c *Commands) UpdateDatatype(ctx context.Context, params pbc.Body) (pbc.Body, error) {
	return c.do(ctx, pbc.DtUpdateReq, params)
}

// GetSearchIndex returns a search index, or every index when name is empty.
func (c *Commands) GetSearchIndex(ctx context.Context, name string) ([]any, error) {
	var params pbc.Body
	if name != "" {
		params = pbc.Body{"name": name}
	}
	body, err := c.do(ctx, pbc.RpbYokozunaIndexGetReq, params)
	if err != nil {
		return nil, err
	}
	indexes, _ := body["index"].([]any)
	return indexes, nil
}

// PutSearchIndex creates a search index. index: name, schema, n_val.
func (c *Commands) PutSearchIndex(ctx context.Context, index pbc.Body) error {
	_, err := c.do(ctx, pbc.RpbYokozunaIndexPutReq, pbc.Body{"index": index})
	return err
}

// DeleteSearchIndex deletes a search index.
func (c *Commands) DeleteSearchIndex(ctx context.Context, name string) error {
	_, err := c.do(ctx, pbc.RpbYokozunaIndexDeleteReq, pbc.Body{"name": name})
	return err
}

// GetSearchSchema returns a search schema: name and content.
func (c *Commands) GetSearchSchema(ctx context.Context, name string) (pbc.Body, error) {
	body, err := c.do(ctx, pbc.RpbYokozunaSchemaGetReq, pbc.Body{"name": name})
	if err != nil {
		return nil, err
	}
	schema, _ := body["schema"].(pbc.Body)
	return schema, nil
}

// PutSearchSchema stores a search schema.
func (c *Commands) PutSearchSchema(ctx context.Context, name, content string) error {
	_, err := c.do(ctx, pbc.RpbYokozunaSchemaPutReq, pbc.Body{
		"schema": pbc.Body{"name": name, "content": content},
	})
	return err
}

func stringList(v any) []string {
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch s := item.(type) {
		case string:
			out = append(out, s)
		case []byte:
			out = append(out, string(s))
		}
	}
	return out
}
