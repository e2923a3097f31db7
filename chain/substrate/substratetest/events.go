package substratetest

import "encoding/binary"

// Event is one encoded System.Events record emitted during ApplyExtrinsic.
type Event struct {
	ExtrinsicIndex uint32
	// Body is pallet index, event index and the encoded fields.
	Body []byte
}

// ModuleError identifies a pallet error by pallet and error index.
type ModuleError struct {
	Pallet uint8
	Error  uint8
}

// empty weight, Normal class, pays fee
var dispatchInfo = []byte{0, 0, 0, 0}

// ExtrinsicSuccess is System.ExtrinsicSuccess for the extrinsic at index.
func ExtrinsicSuccess(index uint32) Event {
	body := []byte{SystemIndex, 0}
	return Event{ExtrinsicIndex: index, Body: append(body, dispatchInfo...)}
}

// ExtrinsicFailed is System.ExtrinsicFailed with a module dispatch error.
func ExtrinsicFailed(index uint32, err ModuleError) Event {
	body := []byte{SystemIndex, 1}
	body = append(body, moduleError(err)...)
	return Event{ExtrinsicIndex: index, Body: append(body, dispatchInfo...)}
}

// MultisigExecuted is Multisig.MultisigExecuted; a nil err means Ok.
func MultisigExecuted(index uint32, approving, multisig, callHash []byte, height, extrinsic uint32, err *ModuleError) Event {
	body := []byte{MultisigIndex, 2}
	body = append(body, approving...)
	body = binary.LittleEndian.AppendUint32(body, height)
	body = binary.LittleEndian.AppendUint32(body, extrinsic)
	body = append(body, multisig...)
	body = append(body, callHash...)
	if err == nil {
		body = append(body, 0)
	} else {
		body = append(body, 1)
		body = append(body, moduleError(*err)...)
	}
	return Event{ExtrinsicIndex: index, Body: body}
}

// BalancesTransfer is Balances.Transfer with a small amount.
func BalancesTransfer(index uint32, from, to []byte, amount uint64) Event {
	body := []byte{BalancesIndex, 2}
	body = append(body, from...)
	body = append(body, to...)
	body = binary.LittleEndian.AppendUint64(body, amount)
	body = append(body, make([]byte, 8)...)
	return Event{ExtrinsicIndex: index, Body: body}
}

// DispatchError::Module with the error byte padded to four bytes.
func moduleError(err ModuleError) []byte {
	return []byte{3, err.Pallet, err.Error, 0, 0, 0}
}

// EncodeEvents encodes the Vec<EventRecord> stored under System.Events.
// It supports fewer than 64 records.
func EncodeEvents(events ...Event) []byte {
	out := []byte{byte(len(events) << 2)}
	for _, e := range events {
		out = append(out, 0)
		out = binary.LittleEndian.AppendUint32(out, e.ExtrinsicIndex)
		out = append(out, e.Body...)
		// no topics
		out = append(out, 0)
	}
	return out
}
