package pbc

// MessageType is the symbolic name of a protocol message, e.g. "RpbGetReq".
type MessageType string

// Code is the one-byte wire identifier of a message type.
type Code uint8

// Message types
//
// The set is closed: every code the server may send must appear in the table
// below, otherwise the frame fails with a DecodeError.
const (
	RpbErrorResp MessageType = "RpbErrorResp"

	RpbPingReq  MessageType = "RpbPingReq"
	RpbPingResp MessageType = "RpbPingResp"

	RpbGetClientIdReq  MessageType = "RpbGetClientIdReq"
	RpbGetClientIdResp MessageType = "RpbGetClientIdResp"
	RpbSetClientIdReq  MessageType = "RpbSetClientIdReq"
	RpbSetClientIdResp MessageType = "RpbSetClientIdResp"

	RpbGetServerInfoReq  MessageType = "RpbGetServerInfoReq"
	RpbGetServerInfoResp MessageType = "RpbGetServerInfoResp"

	RpbGetReq  MessageType = "RpbGetReq"
	RpbGetResp MessageType = "RpbGetResp"
	RpbPutReq  MessageType = "RpbPutReq"
	RpbPutResp MessageType = "RpbPutResp"
	RpbDelReq  MessageType = "RpbDelReq"
	RpbDelResp MessageType = "RpbDelResp"

	RpbListBucketsReq  MessageType = "RpbListBucketsReq"
	RpbListBucketsResp MessageType = "RpbListBucketsResp"
	RpbListKeysReq     MessageType = "RpbListKeysReq"
	RpbListKeysResp    MessageType = "RpbListKeysResp"

	RpbGetBucketReq     MessageType = "RpbGetBucketReq"
	RpbGetBucketResp    MessageType = "RpbGetBucketResp"
	RpbSetBucketReq     MessageType = "RpbSetBucketReq"
	RpbSetBucketResp    MessageType = "RpbSetBucketResp"
	RpbResetBucketReq   MessageType = "RpbResetBucketReq"
	RpbResetBucketResp  MessageType = "RpbResetBucketResp"
	RpbGetBucketTypeReq MessageType = "RpbGetBucketTypeReq"
	RpbSetBucketTypeReq MessageType = "RpbSetBucketTypeReq"

	RpbMapRedReq  MessageType = "RpbMapRedReq"
	RpbMapRedResp MessageType = "RpbMapRedResp"

	RpbIndexReq  MessageType = "RpbIndexReq"
	RpbIndexResp MessageType = "RpbIndexResp"

	RpbSearchQueryReq  MessageType = "RpbSearchQueryReq"
	RpbSearchQueryResp MessageType = "RpbSearchQueryResp"

	RpbCounterUpdateReq  MessageType = "RpbCounterUpdateReq"
	RpbCounterUpdateResp MessageType = "RpbCounterUpdateResp"
	RpbCounterGetReq     MessageType = "RpbCounterGetReq"
	RpbCounterGetResp    MessageType = "RpbCounterGetResp"

	RpbYokozunaIndexGetReq    MessageType = "RpbYokozunaIndexGetReq"
	RpbYokozunaIndexGetResp   MessageType = "RpbYokozunaIndexGetResp"
	RpbYokozunaIndexPutReq    MessageType = "RpbYokozunaIndexPutReq"
	RpbYokozunaIndexDeleteReq MessageType = "RpbYokozunaIndexDeleteReq"
	RpbYokozunaSchemaGetReq   MessageType = "RpbYokozunaSchemaGetReq"
	RpbYokozunaSchemaGetResp  MessageType = "RpbYokozunaSchemaGetResp"
	RpbYokozunaSchemaPutReq   MessageType = "RpbYokozunaSchemaPutReq"

	DtFetchReq   MessageType = "DtFetchReq"
	DtFetchResp  MessageType = "DtFetchResp"
	DtUpdateReq  MessageType = "DtUpdateReq"
	DtUpdateResp MessageType = "DtUpdateResp"

	RpbAuthReq  MessageType = "RpbAuthReq"
	RpbAuthResp MessageType = "RpbAuthResp"
	RpbStartTls MessageType = "RpbStartTls"
)

var typeToCode = map[MessageType]Code{
	RpbErrorResp: 0,

	RpbPingReq:  1,
	RpbPingResp: 2,

	RpbGetClientIdReq:  3,
	RpbGetClientIdResp: 4,
	RpbSetClientIdReq:  5,
	RpbSetClientIdResp: 6,

	RpbGetServerInfoReq:  7,
	RpbGetServerInfoResp: 8,

	RpbGetReq:  9,
	RpbGetResp: 10,
	RpbPutReq:  11,
	RpbPutResp: 12,
	RpbDelReq:  13,
	RpbDelResp: 14,

	RpbListBucketsReq:  15,
	RpbListBucketsResp: 16,
	RpbListKeysReq:     17,
	RpbListKeysResp:    18,

	RpbGetBucketReq:     19,
	RpbGetBucketResp:    20,
	RpbSetBucketReq:     21,
	RpbSetBucketResp:    22,
	RpbMapRedReq:        23,
	RpbMapRedResp:       24,
	RpbIndexReq:         25,
	RpbIndexResp:        26,
	RpbSearchQueryReq:   27,
	RpbSearchQueryResp:  28,
	RpbResetBucketReq:   29,
	RpbResetBucketResp:  30,
	RpbGetBucketTypeReq: 31,
	RpbSetBucketTypeReq: 32,

	RpbCounterUpdateReq:  50,
	RpbCounterUpdateResp: 51,
	RpbCounterGetReq:     52,
	RpbCounterGetResp:    53,

	RpbYokozunaIndexGetReq:    54,
	RpbYokozunaIndexGetResp:   55,
	RpbYokozunaIndexPutReq:    56,
	RpbYokozunaIndexDeleteReq: 57,
	RpbYokozunaSchemaGetReq:   58,
	RpbYokozunaSchemaGetResp:  59,
	RpbYokozunaSchemaPutReq:   60,

	DtFetchReq:   80,
	DtFetchResp:  81,
	DtUpdateReq:  82,
	DtUpdateResp: 83,

	RpbAuthReq:  253,
	RpbAuthResp: 254,
	RpbStartTls: 255,
}

var codeToType = func() map[Code]MessageType {
	m := make(map[Code]MessageType, len(typeToCode))
	for t, c := range typeToCode {
		m[c] = t
	}
	return m
}()

// CodeOf returns the wire code for a message type.
func CodeOf(t MessageType) (Code, bool) {
	c, ok := typeToCode[t]
	return c, ok
}

// TypeOf returns the message type bound to a wire code.
func TypeOf(c Code) (MessageType, bool) {
	t, ok := codeToType[c]
	return t, ok
}

// MessageTypes returns every known message type, in no particular order.
func MessageTypes() []MessageType {
	types := make([]MessageType, 0, len(typeToCode))
	for t := range typeToCode {
		types = append(types, t)
	}
	return types
}
