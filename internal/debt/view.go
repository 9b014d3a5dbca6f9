package debt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/entity"
	userentity "github.com/ovaphlow/pitchfork/service-debts-go/internal/user/entity"
)

type OperationView struct {
	ID             string                 `json:"id"`
	Date           time.Time              `json:"date"`
	MoneyAmount    decimal.Decimal        `json:"moneyAmount"`
	MoneyReceiver  string                 `json:"moneyReceiver"`
	Description    string                 `json:"description"`
	Status         entity.OperationStatus `json:"status"`
	StatusAcceptor *string                `json:"statusAcceptor"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// DebtView is a debt as seen by one user: User is the other side.
type DebtView struct {
	ID              string             `json:"id"`
	Type            entity.DebtType    `json:"type"`
	Status          entity.DebtStatus  `json:"status"`
	StatusAcceptor  *string            `json:"statusAcceptor"`
	Summary         decimal.Decimal    `json:"summary"`
	MoneyReceiver   *string            `json:"moneyReceiver"`
	User            *userentity.Public `json:"user"`
	MoneyOperations []OperationView    `json:"moneyOperations,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// NewDebtView maps a debt for viewer. users should hold both members; ops may
// be nil for list responses. Nothing passed in is modified.
func NewDebtView(viewer string, d *entity.Debt, users map[string]*userentity.User, ops []*entity.Operation) DebtView {
	v := DebtView{
		ID:             d.ID,
		Type:           d.Type,
		Status:         d.Status,
		StatusAcceptor: copyString(d.StatusAcceptor),
		Summary:        d.Summary,
		MoneyReceiver:  copyString(d.MoneyReceiver),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if u := users[counterparty(viewer, d, users)]; u != nil {
		p := u.Public()
		v.User = &p
	}
	if len(ops) > 0 {
		v.MoneyOperations = make([]OperationView, 0, len(ops))
		for _, op := range ops {
			v.MoneyOperations = append(v.MoneyOperations, OperationView{
				ID:             op.ID,
				Date:           op.Date,
				MoneyAmount:    op.MoneyAmount,
				MoneyReceiver:  op.MoneyReceiver,
				Description:    op.Description,
				Status:         op.Status,
				StatusAcceptor: copyString(op.StatusAcceptor),
				CreatedAt:      op.CreatedAt,
			})
		}
	}
	return v
}

// counterparty is the member opposite viewer. An invited non-member sees the
// real member who invited them.
func counterparty(viewer string, d *entity.Debt, users map[string]*userentity.User) string {
	if other := d.Other(viewer); other != "" {
		return other
	}
	for _, id := range d.Members() {
		if u := users[id]; u != nil && !u.Virtual {
			return id
		}
	}
	return d.FirstUserID
}

func copyString(p *string) *string {
	if p == nil {
		return nil
	}
	s := *p
	return &s
}
