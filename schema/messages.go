package schema

import "github.com/pior/riakpb/pbc"

// Enumerations
var (
	indexQueryTypes = map[string]int32{"eq": 0, "range": 1}

	replModes = map[string]int32{"FALSE": 0, "REALTIME": 1, "FULLSYNC": 2, "TRUE": 3}

	dataTypes = map[string]int32{"COUNTER": 1, "SET": 2, "MAP": 3, "HLL": 4, "GSET": 5}

	mapFieldTypes = map[string]int32{"COUNTER": 1, "SET": 2, "REGISTER": 3, "FLAG": 4, "MAP": 5}

	flagOps = map[string]int32{"ENABLE": 1, "DISABLE": 2}
)

// Message types without a payload (RpbPingReq, RpbDelResp, RpbStartTls, ...)
// have no entry: they encode to nothing and decode only from nothing.
var builtin = []*Message{
	// Shared
	newMessage(string(pbc.RpbErrorResp),
		str(1, "errmsg"),
		u32(2, "errcode"),
	),
	newMessage("RpbPair",
		str(1, "key"),
		raw(2, "value"),
	),
	newMessage("RpbModFun",
		str(1, "module"),
		str(2, "function"),
	),
	newMessage("RpbCommitHook",
		msg(1, "modfun", "RpbModFun"),
		str(2, "name"),
	),
	newMessage("RpbBucketProps",
		u32(1, "n_val"),
		boolean(2, "allow_mult"),
		boolean(3, "last_write_wins"),
		repeated(msg(4, "precommit", "RpbCommitHook")),
		boolean(5, "has_precommit"),
		repeated(msg(6, "postcommit", "RpbCommitHook")),
		boolean(7, "has_postcommit"),
		msg(8, "chash_keyfun", "RpbModFun"),
		msg(9, "linkfun", "RpbModFun"),
		u32(10, "old_vclock"),
		u32(11, "young_vclock"),
		u32(12, "big_vclock"),
		u32(13, "small_vclock"),
		quorum(14, "pr"),
		quorum(15, "r"),
		quorum(16, "w"),
		quorum(17, "pw"),
		quorum(18, "dw"),
		quorum(19, "rw"),
		boolean(20, "basic_quorum"),
		boolean(21, "notfound_ok"),
		str(22, "backend"),
		boolean(23, "search"),
		enum(24, "repl", replModes),
		str(25, "search_index"),
		str(26, "datatype"),
		boolean(27, "consistent"),
		boolean(28, "write_once"),
	),

	// Server and client identity
	newMessage(string(pbc.RpbGetClientIdResp),
		str(1, "client_id"),
	),
	newMessage(string(pbc.RpbSetClientIdReq),
		str(1, "client_id"),
	),
	newMessage(string(pbc.RpbGetServerInfoResp),
		str(1, "node"),
		str(2, "server_version"),
	),

	// Key/value objects
	newMessage("RpbLink",
		str(1, "bucket"),
		str(2, "key"),
		str(3, "tag"),
	),
	newMessage("RpbContent",
		raw(1, "value"),
		str(2, "content_type"),
		str(3, "charset"),
		str(4, "content_encoding"),
		str(5, "vtag"),
		repeated(msg(6, "links", "RpbLink")),
		u32(7, "last_mod"),
		u32(8, "last_mod_usecs"),
		repeated(msg(9, "usermeta", "RpbPair")),
		repeated(msg(10, "indexes", "RpbPair")),
		boolean(11, "deleted"),
		u32(12, "ttl"),
	),
	newMessage(string(pbc.RpbGetReq),
		str(1, "bucket"),
		str(2, "key"),
		quorum(3, "r"),
		quorum(4, "pr"),
		boolean(5, "basic_quorum"),
		boolean(6, "notfound_ok"),
		raw(7, "if_modified"),
		boolean(8, "head"),
		boolean(9, "deletedvclock"),
		u32(10, "timeout"),
		boolean(11, "sloppy_quorum"),
		u32(12, "n_val"),
		str(13, "type"),
	),
	newMessage(string(pbc.RpbGetResp),
		repeated(msg(1, "content", "RpbContent")),
		raw(2, "vclock"),
		boolean(3, "unchanged"),
	),
	newMessage(string(pbc.RpbPutReq),
		str(1, "bucket"),
		str(2, "key"),
		raw(3, "vclock"),
		msg(4, "content", "RpbContent"),
		quorum(5, "w"),
		quorum(6, "dw"),
		boolean(7, "return_body"),
		quorum(8, "pw"),
		boolean(9, "if_not_modified"),
		boolean(10, "if_none_match"),
		boolean(11, "return_head"),
		u32(12, "timeout"),
		boolean(13, "asis"),
		boolean(14, "sloppy_quorum"),
		u32(15, "n_val"),
		str(16, "type"),
	),
	newMessage(string(pbc.RpbPutResp),
		repeated(msg(1, "content", "RpbContent")),
		raw(2, "vclock"),
		str(3, "key"),
	),
	newMessage(string(pbc.RpbDelReq),
		str(1, "bucket"),
		str(2, "key"),
		quorum(3, "rw"),
		raw(4, "vclock"),
		quorum(5, "r"),
		quorum(6, "w"),
		quorum(7, "pr"),
		quorum(8, "pw"),
		quorum(9, "dw"),
		u32(10, "timeout"),
		boolean(11, "sloppy_quorum"),
		u32(12, "n_val"),
		str(13, "type"),
	),

	// Listing
	newMessage(string(pbc.RpbListBucketsReq),
		u32(1, "timeout"),
		boolean(2, "stream"),
		str(3, "type"),
	),
	newMessage(string(pbc.RpbListBucketsResp),
		repeated(str(1, "buckets")),
		boolean(2, "done"),
	),
	newMessage(string(pbc.RpbListKeysReq),
		str(1, "bucket"),
		u32(2, "timeout"),
		str(3, "type"),
	),
	newMessage(string(pbc.RpbListKeysResp),
		repeated(str(1, "keys")),
		boolean(2, "done"),
	),

	// Bucket properties and bucket types
	newMessage(string(pbc.RpbGetBucketReq),
		str(1, "bucket"),
		str(2, "type"),
	),
	newMessage(string(pbc.RpbGetBucketResp),
		msg(1, "props", "RpbBucketProps"),
	),
	newMessage(string(pbc.RpbSetBucketReq),
		str(1, "bucket"),
		msg(2, "props", "RpbBucketProps"),
		str(3, "type"),
	),
	newMessage(string(pbc.RpbResetBucketReq),
		str(1, "bucket"),
		str(2, "type"),
	),
	newMessage(string(pbc.RpbGetBucketTypeReq),
		str(1, "type"),
	),
	newMessage(string(pbc.RpbSetBucketTypeReq),
		str(1, "type"),
		msg(2, "props", "RpbBucketProps"),
	),

	// Map/reduce
	newMessage(string(pbc.RpbMapRedReq),
		str(1, "request"),
		str(2, "content_type"),
	),
	newMessage(string(pbc.RpbMapRedResp),
		u32(1, "phase"),
		str(2, "response"),
		boolean(3, "done"),
	),

	// Secondary indexes
	newMessage(string(pbc.RpbIndexReq),
		str(1, "bucket"),
		str(2, "index"),
		enum(3, "qtype", indexQueryTypes),
		str(4, "key"),
		str(5, "range_min"),
		str(6, "range_max"),
		boolean(7, "return_terms"),
		boolean(8, "stream"),
		u32(9, "max_results"),
		str(10, "continuation"),
		u32(11, "timeout"),
		str(12, "type"),
		str(13, "term_regex"),
		boolean(14, "pagination_sort"),
	),
	newMessage(string(pbc.RpbIndexResp),
		repeated(str(1, "keys")),
		repeated(msg(2, "results", "RpbPair")),
		str(3, "continuation"),
		boolean(4, "done"),
	),

	// Search
	newMessage("RpbSearchDoc",
		repeated(msg(1, "fields", "RpbPair")),
	),
	newMessage(string(pbc.RpbSearchQueryReq),
		str(1, "q"),
		str(2, "index"),
		u32(3, "rows"),
		u32(4, "start"),
		str(5, "sort"),
		str(6, "filter"),
		str(7, "df"),
		str(8, "op"),
		repeated(str(9, "fl")),
		str(10, "presort"),
	),
	newMessage(string(pbc.RpbSearchQueryResp),
		repeated(msg(1, "docs", "RpbSearchDoc")),
		float(2, "max_score"),
		u32(3, "num_found"),
	),

	// Counters
	newMessage(string(pbc.RpbCounterUpdateReq),
		str(1, "bucket"),
		str(2, "key"),
		sint64(3, "amount"),
		quorum(4, "w"),
		quorum(5, "dw"),
		quorum(6, "pw"),
		boolean(7, "returnvalue"),
	),
	newMessage(string(pbc.RpbCounterUpdateResp),
		sint64(1, "value"),
	),
	newMessage(string(pbc.RpbCounterGetReq),
		str(1, "bucket"),
		str(2, "key"),
		quorum(3, "r"),
		quorum(4, "pr"),
		boolean(5, "basic_quorum"),
		boolean(6, "notfound_ok"),
	),
	newMessage(string(pbc.RpbCounterGetResp),
		sint64(1, "value"),
	),

	// Search administration
	newMessage("RpbYokozunaIndex",
		str(1, "name"),
		str(2, "schema"),
		u32(3, "n_val"),
	),
	newMessage(string(pbc.RpbYokozunaIndexGetReq),
		str(1, "name"),
	),
	newMessage(string(pbc.RpbYokozunaIndexGetResp),
		repeated(msg(1, "index", "RpbYokozunaIndex")),
	),
	newMessage(string(pbc.RpbYokozunaIndexPutReq),
		msg(1, "index", "RpbYokozunaIndex"),
		u32(2, "timeout"),
	),
	newMessage(string(pbc.RpbYokozunaIndexDeleteReq),
		str(1, "name"),
	),
	newMessage("RpbYokozunaSchema",
		str(1, "name"),
		str(2, "content"),
	),
	newMessage(string(pbc.RpbYokozunaSchemaPutReq),
		msg(1, "schema", "RpbYokozunaSchema"),
	),
	newMessage(string(pbc.RpbYokozunaSchemaGetReq),
		str(1, "name"),
	),
	newMessage(string(pbc.RpbYokozunaSchemaGetResp),
		msg(1, "schema", "RpbYokozunaSchema"),
	),

	// Data types
	newMessage("MapField",
		str(1, "name"),
		enum(2, "type", mapFieldTypes),
	),
	newMessage("MapEntry",
		msg(1, "field", "MapField"),
		sint64(2, "counter_value"),
		repeated(str(3, "set_value")),
		str(4, "register_value"),
		boolean(5, "flag_value"),
		repeated(msg(6, "map_value", "MapEntry")),
	),
	newMessage("DtValue",
		sint64(1, "counter_value"),
		repeated(str(2, "set_value")),
		repeated(msg(3, "map_value", "MapEntry")),
		u64(4, "hll_value"),
		repeated(str(5, "gset_value")),
	),
	newMessage("CounterOp",
		sint64(1, "increment"),
	),
	newMessage("SetOp",
		repeated(str(1, "adds")),
		repeated(str(2, "removes")),
	),
	newMessage("HllOp",
		repeated(str(1, "adds")),
	),
	newMessage("GSetOp",
		repeated(str(1, "adds")),
	),
	newMessage("MapUpdate",
		msg(1, "field", "MapField"),
		msg(2, "counter_op", "CounterOp"),
		msg(3, "set_op", "SetOp"),
		str(4, "register_op"),
		enum(5, "flag_op", flagOps),
		msg(6, "map_op", "MapOp"),
	),
	newMessage("MapOp",
		repeated(msg(1, "removes", "MapField")),
		repeated(msg(2, "updates", "MapUpdate")),
	),
	newMessage("DtOp",
		msg(1, "counter_op", "CounterOp"),
		msg(2, "set_op", "SetOp"),
		msg(3, "map_op", "MapOp"),
		msg(4, "hll_op", "HllOp"),
		msg(5, "gset_op", "GSetOp"),
	),
	newMessage(string(pbc.DtFetchReq),
		str(1, "bucket"),
		str(2, "key"),
		str(3, "type"),
		quorum(4, "r"),
		quorum(5, "pr"),
		boolean(6, "basic_quorum"),
		boolean(7, "notfound_ok"),
		u32(8, "timeout"),
		boolean(9, "sloppy_quorum"),
		u32(10, "n_val"),
		boolean(11, "include_context"),
	),
	newMessage(string(pbc.DtFetchResp),
		raw(1, "context"),
		enum(2, "type", dataTypes),
		msg(3, "value", "DtValue"),
	),
	newMessage(string(pbc.DtUpdateReq),
		str(1, "bucket"),
		str(2, "key"),
		str(3, "type"),
		raw(4, "context"),
		msg(5, "op", "DtOp"),
		quorum(6, "w"),
		quorum(7, "dw"),
		quorum(8, "pw"),
		boolean(9, "return_body"),
		u32(10, "timeout"),
		boolean(11, "sloppy_quorum"),
		u32(12, "n_val"),
		boolean(13, "include_context"),
	),
	newMessage(string(pbc.DtUpdateResp),
		str(1, "key"),
		raw(2, "context"),
		sint64(3, "counter_value"),
		repeated(str(4, "set_value")),
		repeated(msg(5, "map_value", "MapEntry")),
		u64(6, "hll_value"),
		repeated(str(7, "gset_value")),
	),

	// Security
	newMessage(string(pbc.RpbAuthReq),
		str(1, "user"),
		str(2, "password"),
	),
}
