package sourcechain

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// rawEvent is the wire shape returned by most_getContractEvents: a
// contract-transcoded event, already resolved against the contract's ABI
// metadata node-side, mirroring the shape aleph-client's
// contract_transcode::Value tree takes before translate_events narrows it
// down to named fields (original_source's contracts/azero.rs).
type rawEvent struct {
	Contract string                  `json:"contract"`
	Name     string                  `json:"name"`
	Fields   map[string]rawFieldJSON `json:"fields"`
}

type rawFieldJSON struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// EventDecoder turns raw wire events into DecodedEvent, filtering to a
// single contract address, adapted from MostInstance.filter_events in
// original_source's contracts/azero.rs.
type EventDecoder struct {
	contract ContractAddress
}

// NewEventDecoder builds a decoder scoped to contract.
func NewEventDecoder(contract ContractAddress) *EventDecoder {
	return &EventDecoder{contract: contract}
}

// Decode parses one wire event. ok is false when the event's contract field
// does not match the configured address (the node-side filter in
// most_getContractEvents is not trusted as authoritative), matching
// filter_events's defensive re-check against &[&self.contract], or when a
// field fails to decode against the contract metadata this decoder
// understands. A field decode failure is logged at debug and the event is
// dropped rather than treated as fatal, matching filter_events's
// filter_map(|event| translate_events(event).ok()): an event whose shape
// this decoder doesn't recognize (e.g. a future variant) must not crash-loop
// the pipeline on its block forever.
func (d *EventDecoder) Decode(raw json.RawMessage, block BlockDetails, log *zap.Logger) (DecodedEvent, bool, error) {
	var ev rawEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return DecodedEvent{}, false, fmt.Errorf("sourcechain: decoding contract event: %w", err)
	}

	if ev.Contract != d.contract.SS58 {
		return DecodedEvent{}, false, nil
	}

	fields := make(map[string]Value, len(ev.Fields))
	for name, f := range ev.Fields {
		v, err := decodeField(f)
		if err != nil {
			log.Debug("sourcechain: dropping event with unrecognized field, not fatal",
				zap.String("event", ev.Name), zap.String("field", name), zap.Error(err))
			return DecodedEvent{}, false, nil
		}
		fields[name] = v
	}

	return DecodedEvent{Name: ev.Name, Fields: fields, Block: block}, true, nil
}

func decodeField(f rawFieldJSON) (Value, error) {
	switch f.Type {
	case "uint":
		var s string
		if err := json.Unmarshal(f.Value, &s); err != nil {
			return Value{}, fmt.Errorf("decoding uint field: %w", err)
		}
		return Value{Kind: KindUInt, UInt: s}, nil
	case "seq":
		var elems []uint64
		if err := json.Unmarshal(f.Value, &elems); err != nil {
			return Value{}, fmt.Errorf("decoding seq field: %w", err)
		}
		return Value{Kind: KindSeq, Seq: elems}, nil
	default:
		return Value{}, fmt.Errorf("unsupported field type %q", f.Type)
	}
}

func parseHash(hexStr string) (Hash, error) {
	var h Hash
	b, err := hexDecode(hexStr)
	if err != nil {
		return Hash{}, fmt.Errorf("sourcechain: invalid hash %q: %w", hexStr, err)
	}
	if len(b) != 32 {
		return Hash{}, fmt.Errorf("sourcechain: hash %q decodes to %d bytes, want 32", hexStr, len(b))
	}
	copy(h[:], b)
	return h, nil
}
