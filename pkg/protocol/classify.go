package protocol

import "github.com/mongowire/core/pkg/wireerr"

// classify turns a reply's top-level document into a CommandFailure, or
// nil if the document reports success (`ok` truthy, or absent entirely —
// legacy OP_QUERY result documents carry no `ok` field at all).
func classify(doc map[string]interface{}) error {
	if isOK(doc) {
		return nil
	}
	return wireerr.CommandFailure(errorCode(doc), errorMessage(doc))
}

// classifyWriteError maps one bulk-write item error's code into the
// taxonomy's DuplicateKey/ExecutionTimeout/WriteConcernFailure split, used
// when merging a batch reply's per-item write errors (§4.6).
func classifyWriteError(code int32, message string) error {
	return wireerr.Classify(code, message)
}

// classifyGLEError inspects a legacy get-last-error reply document for a
// write failure reported through "err"/"code" rather than the top-level
// "ok" field: GLE sets ok truthy even when the write itself failed, so
// classify alone would report a failed acknowledged write as a success.
func classifyGLEError(doc map[string]interface{}) error {
	msg, hasErr := doc["err"].(string)
	if !hasErr || msg == "" {
		return nil
	}
	return classifyWriteError(errorCode(doc), msg)
}

func isOK(doc map[string]interface{}) bool {
	v, present := doc["ok"]
	if !present {
		return true
	}
	switch t := v.(type) {
	case float64:
		return t != 0
	case int32:
		return t != 0
	case int64:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}

func errorCode(doc map[string]interface{}) int32 {
	switch v := doc["code"].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case float64:
		return int32(v)
	default:
		return 0
	}
}

func errorMessage(doc map[string]interface{}) string {
	if m, ok := doc["errmsg"].(string); ok && m != "" {
		return m
	}
	if m, ok := doc["$err"].(string); ok {
		return m
	}
	return "command failed without an error message"
}
