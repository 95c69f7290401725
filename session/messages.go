package session

// SessionResponse is the server's assignment of session identity and round
// parameters.
type SessionResponse struct {
	SessionID     string  `json:"session_id"`
	RoundID       string  `json:"round_id"`
	ClientIndex   int     `json:"client_index"`
	Threshold     int     `json:"threshold"`
	TotalClients  int     `json:"total_clients"`
	PrivacyBudget float64 `json:"privacy_budget"`
	KeyLength     int     `json:"key_length"`
}

// Config extracts the round configuration.
func (r *SessionResponse) Config() Config {
	return Config{
		Threshold:     r.Threshold,
		TotalClients:  r.TotalClients,
		PrivacyBudget: r.PrivacyBudget,
		KeyLength:     r.KeyLength,
	}
}

// ShareKeysRequest carries the output of [Session.GenerateKeyShares].
// Byte fields are base64 in JSON.
type ShareKeysRequest struct {
	SessionID      string `json:"session_id"`
	DeviceID       string `json:"device_id"`
	SharesData     []byte `json:"shares_data"`
	SeedCommitment []byte `json:"seed_commitment,omitempty"`
}

// MaskedInputRequest carries the output of [Session.MaskModelUpdate] and the
// round metadata.
type MaskedInputRequest struct {
	SessionID         string             `json:"session_id"`
	DeviceID          string             `json:"device_id"`
	MaskedWeightsData []byte             `json:"masked_weights_data"`
	SampleCount       int                `json:"sample_count"`
	Metrics           map[string]float64 `json:"metrics"`
	Metadata          map[string]Value   `json:"metadata,omitempty"`
}

// UnmaskResponse is the server's report of which participants dropped.
type UnmaskResponse struct {
	DroppedClientIndices []int `json:"dropped_client_indices"`
	UnmaskingRequired    bool  `json:"unmasking_required"`
}

// UnmaskingSharesRequest carries the output of
// [Session.ProvideUnmaskingShares].
type UnmaskingSharesRequest struct {
	SessionID  string `json:"session_id"`
	DeviceID   string `json:"device_id"`
	SharesData []byte `json:"shares_data"`
}

// ShareKeysRequest wraps shares for the active session, attaching the seed
// commitment.
func (s *Session) ShareKeysRequest(deviceID string, shares []byte) *ShareKeysRequest {
	return &ShareKeysRequest{
		SessionID:      s.SessionID(),
		DeviceID:       deviceID,
		SharesData:     shares,
		SeedCommitment: s.Commitment(),
	}
}

// MaskedInputRequest wraps a masked update for the active session.
func (s *Session) MaskedInputRequest(deviceID string, masked []byte, sampleCount int, roundMetrics map[string]float64) *MaskedInputRequest {
	if roundMetrics == nil {
		roundMetrics = map[string]float64{}
	}
	return &MaskedInputRequest{
		SessionID:         s.SessionID(),
		DeviceID:          deviceID,
		MaskedWeightsData: masked,
		SampleCount:       sampleCount,
		Metrics:           roundMetrics,
	}
}

// UnmaskingSharesRequestFor wraps unmasking shares. The session ID is passed in
// because the session may already have been reset.
func UnmaskingSharesRequestFor(sessionID, deviceID string, shares []byte) *UnmaskingSharesRequest {
	return &UnmaskingSharesRequest{
		SessionID:  sessionID,
		DeviceID:   deviceID,
		SharesData: shares,
	}
}
