package decoderapp

import "solana-tx-decoder/internal/rpcfetch"

// Kind is the decoder's closed error-category set, used to drive
// retry/DLQ/commit branching in the consumer loop without string
// matching.
type Kind string

const (
	KindMalformedInput  Kind = "malformed_input"
	KindRPCTransport    Kind = "rpc_transport"
	KindRPCRateLimited  Kind = "rpc_rate_limited"
	KindRPCServerError  Kind = "rpc_server_error"
	KindRPCDecodeError  Kind = "rpc_decode_error"
	KindRPCMissingResult Kind = "rpc_missing_result"
	KindPublishError    Kind = "publish_error"
	KindValidationError Kind = "validation_error"
)

// IsRPCKind reports whether k is one of the rpc_* categories, which the
// consumer loop retries locally within budget before routing to DLQ.
func (k Kind) IsRPCKind() bool {
	switch k {
	case KindRPCTransport, KindRPCRateLimited, KindRPCServerError, KindRPCDecodeError, KindRPCMissingResult:
		return true
	default:
		return false
	}
}

// kindFromFetchError maps an rpcfetch.ErrorKind onto the decoder's own
// Kind enum, keeping the retry-budget logic independent of rpcfetch's
// internal vocabulary.
func kindFromFetchError(err error) Kind {
	fe, ok := err.(*rpcfetch.FetchError)
	if !ok {
		return KindRPCTransport
	}
	switch fe.Kind {
	case rpcfetch.ErrorKindRateLimited:
		return KindRPCRateLimited
	case rpcfetch.ErrorKindServerError:
		return KindRPCServerError
	case rpcfetch.ErrorKindDecodeError:
		return KindRPCDecodeError
	case rpcfetch.ErrorKindMissingResult:
		return KindRPCMissingResult
	default:
		return KindRPCTransport
	}
}
