package auth

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Ladvien/self-sensored/internal/model"
)

// AuditLogger emits one structured entry per authentication decision
// and per successful ingest (spec §4.8). Writes to highly_sensitive
// reproductive-health samples are always audited, bypassing the
// configured enabled flag entirely (spec §4.8, §3.2.6).
type AuditLogger struct {
	log     *logrus.Logger
	enabled bool
}

func NewAuditLogger(log *logrus.Logger, enabled bool) *AuditLogger {
	return &AuditLogger{log: log, enabled: enabled}
}

func (a *AuditLogger) AuthDecision(apiKeyID uuid.UUID, allowed bool, reason string) {
	if !a.enabled {
		return
	}
	a.log.WithFields(logrus.Fields{
		"audit":      true,
		"event":      "auth_decision",
		"api_key_id": apiKeyID,
		"allowed":    allowed,
		"reason":     reason,
	}).Info("authentication decision")
}

func (a *AuditLogger) Ingest(userID uuid.UUID, sampleCount int) {
	if !a.enabled {
		return
	}
	a.log.WithFields(logrus.Fields{
		"audit":        true,
		"event":        "ingest",
		"user_id":      userID,
		"sample_count": sampleCount,
	}).Info("successful ingest")
}

// SensitiveWrite always emits, regardless of the enabled flag, for
// any write to a highly_sensitive sample (spec §4.8, §3.2.6 invariant
// 6).
func (a *AuditLogger) SensitiveWrite(userID uuid.UUID, kind model.MetricKind, tier model.PrivacyTier) {
	if tier != model.PrivacyTierHighlySensitive {
		return
	}
	a.log.WithFields(logrus.Fields{
		"audit":        true,
		"event":        "sensitive_write",
		"user_id":      userID,
		"kind":         kind,
		"privacy_tier": tier,
	}).Info("highly sensitive sample written")
}
