package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/b1411/finka/internal/core"
)

// ETLRequestMessage asks a worker to rebuild and publish the ledgers of
// one branch and period.
type ETLRequestMessage struct {
	OrgUnitCode string        `json:"org_unit_code"`
	PeriodYM    core.PeriodYM `json:"period_ym"`
	RequestedBy string        `json:"requested_by,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
}

func NewETLRequestMessage(scope core.Scope) *ETLRequestMessage {
	return &ETLRequestMessage{
		OrgUnitCode: scope.OrgUnitCode,
		PeriodYM:    scope.PeriodYM,
		RequestedBy: scope.UserID,
		Timestamp:   time.Now().UTC(),
	}
}

// Scope returns the scope the request targets.
func (m *ETLRequestMessage) Scope() core.Scope {
	return core.Scope{OrgUnitCode: m.OrgUnitCode, PeriodYM: m.PeriodYM, UserID: m.RequestedBy}
}

func (m *ETLRequestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ETLRequestMessageFromJSON decodes a request and rejects ones without a
// valid scope.
func ETLRequestMessageFromJSON(data []byte) (*ETLRequestMessage, error) {
	var msg ETLRequestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Scope().Validate(); err != nil {
		return nil, fmt.Errorf("etl request: %w", err)
	}
	return &msg, nil
}
