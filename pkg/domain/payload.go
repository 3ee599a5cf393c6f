package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// MarriagePayload carries the cost debited from the initiator on accept.
type MarriagePayload struct {
	Cost int64 `mapstructure:"cost" json:"cost"`
}

// BroadcastPayload carries the message body for an approved mass-send job.
type BroadcastPayload struct {
	Body     string `mapstructure:"body" json:"body"`
	Audience string `mapstructure:"audience" json:"audience"`
}

// ActionPayload describes a destructive action gated behind confirmation.
type ActionPayload struct {
	Action string `mapstructure:"action" json:"action"`
	Target string `mapstructure:"target" json:"target"`
}

// DecodePayload maps a proposal's raw payload into a typed struct.
// The output must be a pointer to one of the payload types above.
func DecodePayload(p *Proposal, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: false,
	})
	if err != nil {
		return fmt.Errorf("build payload decoder: %w", err)
	}
	if err := dec.Decode(p.Payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", p.Kind, err)
	}
	return nil
}

// EncodePayload converts a typed payload into the map form stored on a
// proposal. It round-trips through mapstructure so field tags stay the single
// source of truth.
func EncodePayload(in any) (map[string]any, error) {
	out := make(map[string]any)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &out})
	if err != nil {
		return nil, fmt.Errorf("build payload encoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}
