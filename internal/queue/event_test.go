package queue

import "testing"

func validEvent() NegotiationEvent {
	return NegotiationEvent{
		EventID:       "3f8a",
		Type:          EventOfferSubmitted,
		NegotiationID: 1,
		ProductID:     2,
		BuyerID:       3,
		SellerID:      4,
		Amount:        2600,
		Status:        "pending",
	}
}

func TestNegotiationEvent_Validate(t *testing.T) {
	if err := validEvent().Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*NegotiationEvent)
	}{
		{"missing event id", func(e *NegotiationEvent) { e.EventID = "" }},
		{"unknown type", func(e *NegotiationEvent) { e.Type = "offer_withdrawn" }},
		{"zero negotiation", func(e *NegotiationEvent) { e.NegotiationID = 0 }},
		{"zero product", func(e *NegotiationEvent) { e.ProductID = 0 }},
		{"zero buyer", func(e *NegotiationEvent) { e.BuyerID = 0 }},
		{"zero seller", func(e *NegotiationEvent) { e.SellerID = 0 }},
		{"offer without amount", func(e *NegotiationEvent) { e.Amount = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEvent()
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNegotiationEvent_ChatAllowsZeroAmount(t *testing.T) {
	e := validEvent()
	e.Type = EventChatMessage
	e.Amount = 0
	e.Status = "none"
	if err := e.Validate(); err != nil {
		t.Fatalf("chat message with zero amount rejected: %v", err)
	}
}

func TestParseNegotiationEvent_RoundTrip(t *testing.T) {
	src := validEvent()
	got, err := parseNegotiationEvent(toStreamValues(src.Fields()))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != src {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, src)
	}
}

func TestParseNegotiationEvent_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
	}{
		{"missing field", func(v map[string]interface{}) { delete(v, "buyer_id") }},
		{"bad number", func(v map[string]interface{}) { v["amount"] = "abc" }},
		{"fails validation", func(v map[string]interface{}) { v["type"] = "bogus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := toStreamValues(validEvent().Fields())
			tt.mutate(values)
			if _, err := parseNegotiationEvent(values); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

// toStreamValues 模拟 Redis Stream 读出来的 map[string]interface{} 形态。
func toStreamValues(fields map[string]any) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
