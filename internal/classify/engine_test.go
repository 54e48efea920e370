package classify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Inovico-app/inovy-sub006/internal/detect"
	"github.com/Inovico-app/inovy-sub006/internal/logger"
)

type fakePolicyStore struct {
	policies map[string]*Policy
	err      error
}

func policyKey(dataType DataType, organizationID string) string {
	return string(dataType) + "|" + organizationID
}

func (s *fakePolicyStore) GetClassificationPolicy(_ context.Context, dataType DataType, organizationID string) (*Policy, error) {
	if s.err != nil {
		return nil, s.err
	}
	if policy, ok := s.policies[policyKey(dataType, organizationID)]; ok {
		return policy, nil
	}
	return nil, ErrPolicyNotFound
}

func newTestEngine(store PolicyStore) *Engine {
	return NewEngine(detect.New(logger.NewNop()), store, logger.NewNop())
}

func TestClassifyDefaults(t *testing.T) {
	engine := newTestEngine(nil)
	ctx := context.Background()

	tests := []struct {
		dataType      DataType
		wantLevel     Level
		wantRetention int
	}{
		{DataTypeRecording, LevelConfidential, retentionHealthcare},
		{DataTypeTranscription, LevelConfidential, retentionHealthcare},
		{DataTypeChatMessage, LevelConfidential, retentionHealthcare},
		{DataTypeConsentRecord, LevelRestricted, retentionHealthcare},
		{DataTypeAPIResponse, LevelInternal, 0},
		{DataTypeAuditLog, LevelInternal, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.dataType), func(t *testing.T) {
			result := engine.Classify(ctx, Request{DataType: tt.dataType})
			if result.Level != tt.wantLevel {
				t.Errorf("Level = %s, want %s", result.Level, tt.wantLevel)
			}
			if result.RetentionDays != tt.wantRetention {
				t.Errorf("RetentionDays = %d, want %d", result.RetentionDays, tt.wantRetention)
			}
			if tt.wantLevel != LevelPublic && !result.RequiresEncryption {
				t.Error("Expected encryption to be required")
			}
			if result.RequiresEncryption && result.EncryptionAlgorithm != "AES-256-GCM" {
				t.Errorf("EncryptionAlgorithm = %s", result.EncryptionAlgorithm)
			}
		})
	}

	t.Run("UnknownDataType", func(t *testing.T) {
		result := engine.Classify(ctx, Request{DataType: "mystery_blob"})
		if result.Level != LevelConfidential {
			t.Errorf("Unknown data type level = %s, want confidential", result.Level)
		}
	})
}

func TestClassifyContentEscalation(t *testing.T) {
	engine := newTestEngine(nil)
	ctx := context.Background()

	t.Run("PHIEscalatesToRestricted", func(t *testing.T) {
		result := engine.Classify(ctx, Request{
			DataType: DataTypeChatMessage,
			Content:  "patient diagnosed with diabetes type 2",
		})
		if result.Level != LevelRestricted {
			t.Errorf("Level = %s, want restricted", result.Level)
		}
		if !result.Signals.HasPHI {
			t.Error("Expected HasPHI signal")
		}
		if !strings.Contains(result.Reason, "PHI detected") {
			t.Errorf("Reason = %q, want PHI escalation mentioned", result.Reason)
		}
	})

	t.Run("PIIRaisesInternalToConfidential", func(t *testing.T) {
		result := engine.Classify(ctx, Request{
			DataType: DataTypeAPIResponse,
			Content:  "reach me at jan@example.com please",
		})
		if result.Level != LevelConfidential {
			t.Errorf("Level = %s, want confidential", result.Level)
		}
		if !result.Signals.HasPII {
			t.Error("Expected HasPII signal")
		}
	})

	t.Run("FinancialRaisesToConfidential", func(t *testing.T) {
		result := engine.Classify(ctx, Request{
			DataType: DataTypeAPIResponse,
			Content:  "an invoice of 150 euro is outstanding",
		})
		if result.Level != LevelConfidential {
			t.Errorf("Level = %s, want confidential", result.Level)
		}
		if !result.Signals.HasFinancialData {
			t.Error("Expected HasFinancialData signal")
		}
	})

	t.Run("CleanContentKeepsBase", func(t *testing.T) {
		result := engine.Classify(ctx, Request{
			DataType: DataTypeAPIResponse,
			Content:  "the weather is nice today",
		})
		if result.Level != LevelInternal {
			t.Errorf("Level = %s, want internal", result.Level)
		}
	})
}

func TestClassifyExplicitLevel(t *testing.T) {
	engine := newTestEngine(nil)
	ctx := context.Background()

	t.Run("ExplicitWinsOverDefault", func(t *testing.T) {
		result := engine.Classify(ctx, Request{
			DataType:      DataTypeAPIResponse,
			ExplicitLevel: LevelPublic,
		})
		if result.Level != LevelPublic {
			t.Errorf("Level = %s, want public", result.Level)
		}
		if result.Reason != "explicit" {
			t.Errorf("Reason = %q, want explicit", result.Reason)
		}
		if result.RequiresEncryption {
			t.Error("Public data should not require encryption")
		}
	})

	t.Run("RecordingFloorsExplicitPublic", func(t *testing.T) {
		result := engine.Classify(ctx, Request{
			DataType:      DataTypeRecording,
			ExplicitLevel: LevelPublic,
		})
		if result.Level != LevelConfidential {
			t.Errorf("Level = %s, want confidential", result.Level)
		}
		if !strings.Contains(result.Reason, "healthcare source data") {
			t.Errorf("Reason = %q, want healthcare floor mentioned", result.Reason)
		}
	})

	t.Run("InvalidExplicitIgnored", func(t *testing.T) {
		result := engine.Classify(ctx, Request{
			DataType:      DataTypeAPIResponse,
			ExplicitLevel: "top-secret",
		})
		if result.Level != LevelInternal {
			t.Errorf("Level = %s, want internal default", result.Level)
		}
	})
}

func TestClassifyStoredPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("OrganizationPolicy", func(t *testing.T) {
		store := &fakePolicyStore{policies: map[string]*Policy{
			policyKey(DataTypeChatMessage, "org-1"): {
				DataType:       DataTypeChatMessage,
				OrganizationID: "org-1",
				Level:          LevelInternal,
				Active:         true,
			},
		}}
		engine := newTestEngine(store)

		result := engine.Classify(ctx, Request{DataType: DataTypeChatMessage, OrganizationID: "org-1"})
		if result.Level != LevelInternal {
			t.Errorf("Level = %s, want internal", result.Level)
		}
		if result.Reason != "organization policy" {
			t.Errorf("Reason = %q, want organization policy", result.Reason)
		}
	})

	t.Run("GlobalPolicyFallback", func(t *testing.T) {
		store := &fakePolicyStore{policies: map[string]*Policy{
			policyKey(DataTypeChatMessage, ""): {
				DataType: DataTypeChatMessage,
				Level:    LevelInternal,
				Active:   true,
			},
		}}
		engine := newTestEngine(store)

		result := engine.Classify(ctx, Request{DataType: DataTypeChatMessage, OrganizationID: "org-2"})
		if result.Level != LevelInternal {
			t.Errorf("Level = %s, want internal", result.Level)
		}
		if result.Reason != "global policy" {
			t.Errorf("Reason = %q, want global policy", result.Reason)
		}
	})

	t.Run("PolicyRetentionOverride", func(t *testing.T) {
		store := &fakePolicyStore{policies: map[string]*Policy{
			policyKey(DataTypeConsentRecord, ""): {
				DataType:      DataTypeConsentRecord,
				Level:         LevelRestricted,
				RetentionDays: 3650,
				Active:        true,
			},
		}}
		engine := newTestEngine(store)

		result := engine.Classify(ctx, Request{DataType: DataTypeConsentRecord})
		if result.RetentionDays != 3650 {
			t.Errorf("RetentionDays = %d, want 3650", result.RetentionDays)
		}
	})

	t.Run("StoreErrorDegradesToDefault", func(t *testing.T) {
		engine := newTestEngine(&fakePolicyStore{err: errors.New("connection refused")})

		result := engine.Classify(ctx, Request{DataType: DataTypeChatMessage, OrganizationID: "org-1"})
		if result.Level != LevelConfidential {
			t.Errorf("Level = %s, want confidential default", result.Level)
		}
		if !strings.Contains(result.Reason, "default for chat_message") {
			t.Errorf("Reason = %q, want default table mentioned", result.Reason)
		}
	})
}
