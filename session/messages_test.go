package session

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestValueJSON(t *testing.T) {
	cases := map[string]struct {
		value Value
		json  string
	}{
		"String": {StringValue("cpu"), `{"type":"string","value":"cpu"}`},
		"Int":    {IntValue(42), `{"type":"int","value":42}`},
		"Double": {DoubleValue(0.25), `{"type":"double","value":0.25}`},
		"Bool":   {BoolValue(true), `{"type":"bool","value":true}`},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := json.Marshal(tc.value)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != tc.json {
				t.Errorf("got %s, want %s", data, tc.json)
			}

			var back Value
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatal(err)
			}
			if back != tc.value {
				t.Errorf("round trip changed value: %+v -> %+v", tc.value, back)
			}
		})
	}
}

func TestValueKeepsVariant(t *testing.T) {
	var v Value
	if err := json.Unmarshal([]byte(`{"type":"double","value":3}`), &v); err != nil {
		t.Fatal(err)
	}
	if _, ok := v.AsInt(); ok {
		t.Error("double decoded as int")
	}
	if f, ok := v.AsDouble(); !ok || f != 3 {
		t.Errorf("AsDouble = %v, %v", f, ok)
	}

	big := IntValue(math.MaxInt64)
	data, err := json.Marshal(big)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatal(err)
	}
	if i, ok := v.AsInt(); !ok || i != math.MaxInt64 {
		t.Errorf("large int not preserved: %d", i)
	}
}

func TestValueRejects(t *testing.T) {
	for name, v := range map[string]Value{
		"Empty": {},
		"NaN":   DoubleValue(math.NaN()),
		"Inf":   DoubleValue(math.Inf(1)),
	} {
		t.Run("Marshal"+name, func(t *testing.T) {
			if _, err := json.Marshal(v); err == nil {
				t.Error("expected error")
			}
		})
	}

	for name, data := range map[string]string{
		"UnknownType":  `{"type":"bytes","value":"x"}`,
		"FractionInt":  `{"type":"int","value":4.5}`,
		"StringAsBool": `{"type":"bool","value":"true"}`,
		"MissingValue": `{"type":"string"}`,
	} {
		t.Run("Unmarshal"+name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(data), &v); err == nil {
				t.Errorf("expected error, got %+v", v)
			}
		})
	}
}

func TestSessionResponseBegin(t *testing.T) {
	data := `{"session_id":"s-9","round_id":"r-1","client_index":2,"threshold":2,"total_clients":3}`
	var resp SessionResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		t.Fatal(err)
	}

	s := New()
	if err := s.BeginFromResponse(&resp); err != nil {
		t.Fatal(err)
	}
	if s.SessionID() != "s-9" || s.ClientIndex() != 2 {
		t.Errorf("identity = %q/%d", s.SessionID(), s.ClientIndex())
	}
	if cfg := s.Config(); cfg.KeyLength != DefaultKeyLength || cfg.PrivacyBudget != DefaultPrivacyBudget {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	if err := New().BeginFromResponse(nil); err == nil {
		t.Error("expected error for nil response")
	}
}

func TestRequestEncoding(t *testing.T) {
	s := advance(t, ShareKeys)
	shares, err := s.GenerateKeyShares()
	if err != nil {
		t.Fatal(err)
	}

	req := s.ShareKeysRequest("device-1", shares)
	data, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"session_id", "device_id", "shares_data", "seed_commitment"} {
		if _, ok := fields[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	if fields["shares_data"] != base64.StdEncoding.EncodeToString(shares) {
		t.Error("shares_data is not base64 of the payload")
	}

	masked, err := s.MaskModelUpdate(update(2))
	if err != nil {
		t.Fatal(err)
	}
	in := s.MaskedInputRequest("device-1", masked, 10, nil)
	in.Metadata = map[string]Value{"epochs": IntValue(3)}
	data, err = json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"metrics":{}`) {
		t.Errorf("metrics should encode as an empty object: %s", data)
	}
	if !strings.Contains(string(data), `"metadata":{"epochs":{"type":"int","value":3}}`) {
		t.Errorf("unexpected metadata encoding: %s", data)
	}

	var decoded MaskedInputRequest
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if string(decoded.MaskedWeightsData) != string(masked) || decoded.SampleCount != 10 {
		t.Error("masked input request did not round trip")
	}

	var unmask UnmaskResponse
	if err := json.Unmarshal([]byte(`{"dropped_client_indices":[3],"unmasking_required":true}`), &unmask); err != nil {
		t.Fatal(err)
	}
	payload, err := s.HandleUnmaskResponse(&unmask)
	if err != nil {
		t.Fatal(err)
	}
	out := UnmaskingSharesRequestFor("s", "device-1", payload)
	if out.SessionID != "s" || len(out.SharesData) == 0 {
		t.Errorf("unexpected request %+v", out)
	}
}
