package rule

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Condition is one predicate inside a rule's logic block. Value stays an
// opaque JSON scalar so condition types can evolve without a schema change.
type Condition struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type Conditions []Condition

func (c Conditions) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Conditions) Scan(value interface{}) error {
	return scanJSON(value, c)
}

// Approver is one entry in the rule's designated approver sequence. Equal
// sequence numbers denote an any-of group; current rules use strictly
// increasing unique sequences.
type Approver struct {
	UserID   int64 `json:"user_id"`
	Sequence int   `json:"sequence"`
}

type Approvers []Approver

func (a Approvers) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (a *Approvers) Scan(value interface{}) error {
	return scanJSON(value, a)
}

type Rule struct {
	ID         int64      `gorm:"primaryKey"`
	CompanyID  int64      `gorm:"column:company_id;not null"`
	Name       string     `gorm:"column:name;not null"`
	Operator   string     `gorm:"column:operator;default:OR"`
	Conditions Conditions `gorm:"column:conditions;type:jsonb"`
	Approvers  Approvers  `gorm:"column:approvers;type:jsonb"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at"`
}

func (Rule) TableName() string {
	return "approval_rules"
}

func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported type for JSON column")
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}
