package protocol

import (
	"github.com/mongowire/core/pkg/stream"
	"github.com/mongowire/core/pkg/wire"
	"github.com/mongowire/core/pkg/wireerr"
)

// WriteError is one item-level failure from a bulk-write batch reply,
// translated back to its position in the caller's original item list.
type WriteError struct {
	Index   int
	Code    int32
	Message string
	Cause   error
}

// BulkWriteResult is the aggregated outcome of splitting and sending every
// physical message a bulk write produced.
type BulkWriteResult struct {
	Inserted    int
	Matched     int
	Modified    int
	Deleted     int
	WriteErrors []WriteError
}

// indexMap relates a physical item position within one batch's reply back
// to its logical position in the caller's original, unsplit item list
// (§4.6's IndexMap(range_start, item_count)).
type indexMap struct {
	rangeStart int
	itemCount  int
}

func (m indexMap) logical(physicalIndex int) int { return m.rangeStart + physicalIndex }

// BulkWrite drives §4.6's batch-splitting loop: encode, send, receive,
// classify, merge, and — for ordered writes — stop at the first batch that
// reports a write error. The returned result aggregates every batch sent
// before that point.
func (e *Engine) BulkWrite(op stream.Operation, cmd wire.CommandEnvelope, items [][]byte, ordered bool) (BulkWriteResult, error) {
	var result BulkWriteResult
	rangeStart := 0
	cur := &wire.WriteCommandMessage{Command: cmd, Items: items, Limits: e.Limits}

	for {
		enc, err := cur.Encode(e.Pool)
		if err != nil {
			return result, err
		}
		im := indexMap{rangeStart: rangeStart, itemCount: enc.ItemCount}

		e.Metrics.CommandsTotal.WithLabelValues(opLabel(wire.OpCommand)).Inc()
		if err := e.Stream.Write(op, enc.Buffer); err != nil {
			enc.Buffer.Release()
			return result, err
		}
		enc.Buffer.Release()

		reply, err := e.readReply(op, enc.RequestID)
		if err != nil {
			return result, err
		}
		if len(reply.Documents) == 0 {
			return result, wireerr.InvalidReply("bulk write batch reply carried no documents")
		}
		doc := reply.Documents[0]
		if !isOK(doc) {
			return result, wireerr.CommandFailure(errorCode(doc), errorMessage(doc))
		}

		mergeBatchReply(&result, doc, im)

		rangeStart += enc.ItemCount
		if enc.Continuation == nil {
			return result, nil
		}
		e.Metrics.BatchesSplitTotal.Inc()
		if ordered && len(result.WriteErrors) > 0 {
			return result, nil
		}
		cur = enc.Continuation
	}
}

// mergeBatchReply folds one batch's write-command reply document into the
// running aggregate, translating any per-item write errors through im back
// to their logical position in the original item list.
func mergeBatchReply(result *BulkWriteResult, doc map[string]interface{}, im indexMap) {
	result.Inserted += intField(doc, "nInserted")
	result.Matched += intField(doc, "nMatched")
	result.Modified += intField(doc, "nModified")
	result.Deleted += intField(doc, "nRemoved")

	raw, ok := doc["writeErrors"].([]interface{})
	if !ok {
		return
	}
	for _, item := range raw {
		werr, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		physicalIndex := intField(werr, "index")
		code := int32(intField(werr, "code"))
		msg, _ := werr["errmsg"].(string)
		result.WriteErrors = append(result.WriteErrors, WriteError{
			Index:   im.logical(physicalIndex),
			Code:    code,
			Message: msg,
			Cause:   classifyWriteError(code, msg),
		})
	}
}

func intField(doc map[string]interface{}, key string) int {
	switch v := doc[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
