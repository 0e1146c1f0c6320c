package proto

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

type PingResponse struct {
	Status string `json:"status"`
}

// SubmitRequest is a member submission. The submitter identity is taken
// from the access token, never from the request.
type SubmitRequest struct {
	UnitKey   string `json:"unit_key"`
	OwnerName string `json:"owner_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
	FileRefs  string `json:"file_refs,omitempty"`
}

type SubmitResponse struct {
	Outcome      string `json:"outcome"`
	Accepted     int    `json:"accepted"`
	AddedBytes   int64  `json:"added_bytes"`
	Reason       string `json:"reason,omitempty"`
	ContainerRef string `json:"container_ref,omitempty"`
}

type RunPassResponse struct {
	Processed   int   `json:"processed"`
	Deferred    int   `json:"deferred"`
	Provisioned int   `json:"provisioned"`
	Failed      int   `json:"failed"`
	DurationMs  int64 `json:"duration_ms"`
}

type RegisterUnitRequest struct {
	UnitKey       string `json:"unit_key"`
	OwnerIdentity string `json:"owner_identity"`
	ContainerRef  string `json:"container_ref,omitempty"`
}

type RegisterUnitResponse struct {
	ID            int64  `json:"id"`
	UnitKey       string `json:"unit_key"`
	NormalizedKey string `json:"normalized_key"`
}

type HistoryRow struct {
	UnitKey  string `json:"unit_key"`
	FileRefs string `json:"file_refs"`
}

type SeedLedgerRequest struct {
	Rows []HistoryRow `json:"rows"`
}

type SeedLedgerResponse struct {
	Updated   int      `json:"updated"`
	IDs       int      `json:"ids"`
	Unmatched []string `json:"unmatched,omitempty"`
}

// AuditLogRequest asks for the most recent audit records. Zero means the
// server default.
type AuditLogRequest struct {
	Limit int `json:"limit,omitempty"`
}

type AuditRecord struct {
	ID        int64  `json:"id"`
	Timestamp string `json:"ts"`
	Category  string `json:"category"`
	Subject   string `json:"subject,omitempty"`
	Object    string `json:"object,omitempty"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Action    string `json:"action,omitempty"`
}

type AuditLogResponse struct {
	Records []AuditRecord `json:"records"`
}

// Encode converts a message into its wire form.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return s, nil
}

// Decode fills v from its wire form. A nil s decodes as an empty message.
func Decode(s *structpb.Struct, v any) error {
	if s == nil {
		s = &structpb.Struct{}
	}
	b, err := protojson.Marshal(s)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
