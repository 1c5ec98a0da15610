package schema

// Symbolic quorum values understood by the server in r, pr, w, pw, dw and rw
// fields. They travel as sentinel values at the top of the uint32 range.
const (
	QuorumOne     uint32 = 0xFFFFFFFE
	QuorumQuorum  uint32 = 0xFFFFFFFD
	QuorumAll     uint32 = 0xFFFFFFFC
	QuorumDefault uint32 = 0xFFFFFFFB
)

var quorumValues = map[string]uint32{
	"one":     QuorumOne,
	"quorum":  QuorumQuorum,
	"all":     QuorumAll,
	"default": QuorumDefault,
}

// QuorumValue converts a symbolic quorum name to its wire value.
func QuorumValue(name string) (uint32, bool) {
	v, ok := quorumValues[name]
	return v, ok
}

// QuorumName converts a wire value back to its symbolic name. Plain node
// counts are not symbolic and return false.
func QuorumName(v uint32) (string, bool) {
	switch v {
	case QuorumOne:
		return "one", true
	case QuorumQuorum:
		return "quorum", true
	case QuorumAll:
		return "all", true
	case QuorumDefault:
		return "default", true
	default:
		return "", false
	}
}
