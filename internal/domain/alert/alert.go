package alert

import (
	"time"

	"github.com/google/uuid"
)

// Alert is the audit record of a fraud warning raised for an owner
type Alert struct {
	ID         uuid.UUID `json:"id" bson:"_id"`
	OwnerID    uuid.UUID `json:"owner_id" bson:"owner_id"`
	Rule       string    `json:"rule" bson:"rule"`
	Severity   string    `json:"severity" bson:"severity"`
	Message    string    `json:"message" bson:"message"`
	DetectedAt time.Time `json:"detected_at" bson:"detected_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
