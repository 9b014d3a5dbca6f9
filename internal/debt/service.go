package debt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/entity"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/debt/repo"
	"github.com/ovaphlow/pitchfork/service-debts-go/internal/user"
	userentity "github.com/ovaphlow/pitchfork/service-debts-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-debts-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-debts-go/pkg/utilities"
)

// Avatars produces and removes pictures of virtual users.
type Avatars interface {
	Generate(seed string) (string, error)
	Remove(picture string)
}

// Service runs the debt and operation state machines. Every transition is a
// single database transaction.
type Service struct {
	db      *sqlx.DB
	avatars Avatars
	logger  *zap.SugaredLogger
}

func NewService(db *sqlx.DB, avatars Avatars, logger *zap.SugaredLogger) *Service {
	return &Service{db: db, avatars: avatars, logger: logger}
}

type store struct {
	debts *repo.DebtRepo
	ops   *repo.OperationRepo
	users *userrepo.UserRepo
}

func newStore(db sqlx.ExtContext) store {
	return store{
		debts: repo.NewDebtRepo(db),
		ops:   repo.NewOperationRepo(db),
		users: userrepo.NewUserRepo(db),
	}
}

// effects collects avatar files touched by a transition: created ones are
// removed if the transaction fails, removed ones only after it commits.
type effects struct {
	created []string
	removed []string
}

func (s *Service) run(ctx context.Context, fn func(st store, fx *effects) error) error {
	fx := &effects{}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(newStore(tx), fx)
	})
	if err != nil {
		for _, p := range fx.created {
			s.avatars.Remove(p)
		}
		return err
	}
	for _, p := range fx.removed {
		s.avatars.Remove(p)
	}
	return nil
}

// loadDebt returns a debt visible to actor: a member, or the user invited to
// resolve it when invitee is true.
func loadDebt(ctx context.Context, st store, id, actor string, invitee bool) (*entity.Debt, error) {
	d, err := st.debts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDebtNotFound
		}
		return nil, err
	}
	if d.IsMember(actor) || (invitee && d.IsAcceptor(actor)) {
		return d, nil
	}
	return nil, ErrDebtNotFound
}

func loadRealUser(ctx context.Context, st store, id string) (*userentity.User, error) {
	u, err := st.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if u.Virtual {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *Service) newVirtualUser(ctx context.Context, st store, fx *effects, name, owner string) (*userentity.User, error) {
	id := utilities.NewSnowflakeID()
	picture, err := s.avatars.Generate(id)
	if err != nil {
		return nil, err
	}
	fx.created = append(fx.created, picture)
	now := time.Now().UTC()
	v := &userentity.User{
		ID:        id,
		Name:      name,
		Picture:   picture,
		Virtual:   true,
		OwnerID:   &owner,
		Status:    user.StatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := st.users.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

func newDebt(first, second string, typ entity.DebtType) *entity.Debt {
	now := time.Now().UTC()
	return &entity.Debt{
		ID:           utilities.NewSnowflakeID(),
		FirstUserID:  first,
		SecondUserID: second,
		Type:         typ,
		Status:       entity.DebtUnchanged,
		Summary:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CreateMultipleDebt invites userID into a debt with actor.
func (s *Service) CreateMultipleDebt(ctx context.Context, actor, userID string) (*DebtView, error) {
	if actor == userID {
		return nil, ErrSelfDebt
	}
	var id string
	err := s.run(ctx, func(st store, fx *effects) error {
		if _, err := loadRealUser(ctx, st, userID); err != nil {
			return err
		}
		exists, err := st.debts.ExistsBetween(ctx, actor, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDebtAlreadyExists
		}
		d := newDebt(actor, userID, entity.DebtMultipleUsers)
		d.Await(entity.DebtCreationAwaiting, userID)
		id = d.ID
		return st.debts.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("debt created", "debt_id", id, "type", entity.DebtMultipleUsers)
	return s.Get(ctx, actor, id)
}

func (s *Service) AcceptDebtCreation(ctx context.Context, actor, id string) (*DebtView, error) {
	err := s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, id, actor, false)
		if err != nil {
			return err
		}
		if d.Status != entity.DebtCreationAwaiting {
			return ErrWrongStatus
		}
		if !d.IsAcceptor(actor) {
			return ErrNotAcceptor
		}
		d.Settle()
		return st.debts.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// DeclineDebtCreation removes a debt that was never accepted.
func (s *Service) DeclineDebtCreation(ctx context.Context, actor, id string) error {
	return s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, id, actor, false)
		if err != nil {
			return err
		}
		if d.Status != entity.DebtCreationAwaiting {
			return ErrWrongStatus
		}
		return removeDebt(ctx, st, d.ID)
	})
}

// CreateSingleDebt creates a virtual user called name owned by actor and a
// debt between the two.
func (s *Service) CreateSingleDebt(ctx context.Context, actor, name string) (*DebtView, error) {
	name = strings.TrimSpace(name)
	var id string
	err := s.run(ctx, func(st store, fx *effects) error {
		taken, err := st.users.VirtualNameTaken(ctx, actor, name)
		if err != nil {
			return err
		}
		if taken {
			return ErrVirtualNameTaken
		}
		v, err := s.newVirtualUser(ctx, st, fx, name, actor)
		if err != nil {
			return err
		}
		d := newDebt(actor, v.ID, entity.DebtSingleUser)
		id = d.ID
		return st.debts.Create(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("debt created", "debt_id", id, "type", entity.DebtSingleUser)
	return s.Get(ctx, actor, id)
}

// DeleteDebt removes actor from a debt. Single user debts and unaccepted
// debts disappear; an established multiple user debt stays with the other
// member, actor being replaced by a virtual copy.
func (s *Service) DeleteDebt(ctx context.Context, actor, id string) error {
	return s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, id, actor, false)
		if err != nil {
			return err
		}
		switch d.Type {
		case entity.DebtSingleUser:
			return s.removeSingleDebt(ctx, st, fx, d, actor)
		case entity.DebtMultipleUsers:
			switch d.Status {
			case entity.DebtCreationAwaiting:
				return removeDebt(ctx, st, d.ID)
			case entity.DebtUnchanged, entity.DebtChangeAwaiting:
				return s.detachMember(ctx, st, fx, d, actor)
			case entity.DebtUserDeleted, entity.DebtConnectUser:
			}
		}
		return ErrWrongStatus
	})
}

func removeDebt(ctx context.Context, st store, id string) error {
	if err := st.ops.DeleteByDebt(ctx, id); err != nil {
		return err
	}
	return st.debts.Delete(ctx, id)
}

func (s *Service) removeSingleDebt(ctx context.Context, st store, fx *effects, d *entity.Debt, actor string) error {
	if err := removeDebt(ctx, st, d.ID); err != nil {
		return err
	}
	v, err := st.users.GetByID(ctx, d.Other(actor))
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if !v.Virtual {
		return nil
	}
	if err := st.users.Delete(ctx, v.ID); err != nil {
		return err
	}
	fx.removed = append(fx.removed, v.Picture)
	return nil
}

// detachMember swaps actor for a virtual clone in one batch: members, balance
// receiver, operation receivers and operation acceptors.
func (s *Service) detachMember(ctx context.Context, st store, fx *effects, d *entity.Debt, actor string) error {
	me, err := st.users.GetByID(ctx, actor)
	if err != nil {
		return err
	}
	survivor := d.Other(actor)
	name, err := freeVirtualName(ctx, st, survivor, me.Name)
	if err != nil {
		return err
	}
	clone, err := s.newVirtualUser(ctx, st, fx, name, survivor)
	if err != nil {
		return err
	}
	if _, err := st.ops.ReassignReceiver(ctx, d.ID, actor, clone.ID); err != nil {
		return err
	}
	if _, err := st.ops.ClearAcceptor(ctx, d.ID, actor); err != nil {
		return err
	}
	d.ReplaceMember(actor, clone.ID)
	d.Type = entity.DebtSingleUser
	d.Await(entity.DebtUserDeleted, survivor)
	if err := st.debts.Update(ctx, d); err != nil {
		return err
	}
	s.logger.Infow("user left debt", "debt_id", d.ID, "user_id", actor, "virtual_user_id", clone.ID)
	return nil
}

// freeVirtualName returns name, or name with the first free " (N)" suffix,
// so that owner does not end up with two virtual users of the same name.
func freeVirtualName(ctx context.Context, st store, owner, name string) (string, error) {
	candidate := name
	for n := 2; ; n++ {
		taken, err := st.users.VirtualNameTaken(ctx, owner, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}

// AcceptUserDeletedStatus acknowledges that the other member left.
func (s *Service) AcceptUserDeletedStatus(ctx context.Context, actor, id string) (*DebtView, error) {
	err := s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, id, actor, false)
		if err != nil {
			return err
		}
		if d.Status != entity.DebtUserDeleted {
			return ErrWrongStatus
		}
		if !d.IsAcceptor(actor) {
			return ErrNotAcceptor
		}
		pending, err := st.ops.CountPending(ctx, d.ID)
		if err != nil {
			return err
		}
		if pending > 0 {
			d.Await(entity.DebtChangeAwaiting, actor)
		} else {
			d.Settle()
		}
		return st.debts.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// ConnectUserToSingleDebt invites a real user to take the place of the
// virtual member.
func (s *Service) ConnectUserToSingleDebt(ctx context.Context, actor, id, userID string) (*DebtView, error) {
	if actor == userID {
		return nil, ErrSelfDebt
	}
	err := s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, id, actor, false)
		if err != nil {
			return err
		}
		if d.Type != entity.DebtSingleUser {
			return ErrNotSingleDebt
		}
		switch d.Status {
		case entity.DebtUnchanged:
		case entity.DebtConnectUser:
			return ErrConnectionPending
		case entity.DebtUserDeleted:
			return ErrUserDeletionPending
		case entity.DebtCreationAwaiting, entity.DebtChangeAwaiting:
			return ErrNeedsAcceptance
		}
		if _, err := loadRealUser(ctx, st, userID); err != nil {
			return err
		}
		exists, err := st.debts.ExistsBetween(ctx, actor, userID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDebtWithUserExists
		}
		d.Await(entity.DebtConnectUser, userID)
		return st.debts.Update(ctx, d)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// AcceptUserConnection puts the invited actor in place of the virtual member
// and deletes the virtual user.
func (s *Service) AcceptUserConnection(ctx context.Context, actor, id string) (*DebtView, error) {
	err := s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, id, actor, true)
		if err != nil {
			return err
		}
		if d.Status != entity.DebtConnectUser {
			return ErrWrongStatus
		}
		if !d.IsAcceptor(actor) {
			return ErrNotAcceptor
		}
		members := d.Members()
		users, err := st.users.ListByIDs(ctx, members[:])
		if err != nil {
			return err
		}
		var v *userentity.User
		for _, u := range users {
			if u.Virtual {
				v = u
			}
		}
		if v == nil {
			return ErrWrongStatus
		}
		exists, err := st.debts.ExistsBetween(ctx, actor, d.Other(v.ID))
		if err != nil {
			return err
		}
		if exists {
			return ErrDebtWithUserExists
		}
		if _, err := st.ops.ReassignReceiver(ctx, d.ID, v.ID, actor); err != nil {
			return err
		}
		d.ReplaceMember(v.ID, actor)
		d.Type = entity.DebtMultipleUsers
		d.Settle()
		if err := st.debts.Update(ctx, d); err != nil {
			return err
		}
		if err := st.users.Delete(ctx, v.ID); err != nil {
			return err
		}
		fx.removed = append(fx.removed, v.Picture)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("user connected to debt", "debt_id", id, "user_id", actor)
	return s.Get(ctx, actor, id)
}

// DeclineUserConnection cancels a pending invitation. Either member or the
// invitee may decline. The view is nil when actor is not a member.
func (s *Service) DeclineUserConnection(ctx context.Context, actor, id string) (*DebtView, error) {
	member := false
	err := s.run(ctx, func(st store, fx *effects) error {
		d, err := loadDebt(ctx, st, id, actor, true)
		if err != nil {
			return err
		}
		if d.Status != entity.DebtConnectUser {
			return ErrWrongStatus
		}
		member = d.IsMember(actor)
		d.Settle()
		return st.debts.Update(ctx, d)
	})
	if err != nil || !member {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Get returns one debt with its operations as seen by actor.
func (s *Service) Get(ctx context.Context, actor, id string) (*DebtView, error) {
	st := newStore(s.db)
	d, err := loadDebt(ctx, st, id, actor, true)
	if err != nil {
		return nil, err
	}
	members := d.Members()
	users, err := st.users.ListByIDs(ctx, members[:])
	if err != nil {
		return nil, err
	}
	ops, err := st.ops.ListByDebt(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	view := NewDebtView(actor, d, indexUsers(users), ops)
	return &view, nil
}

// List returns the debts of actor without operations.
func (s *Service) List(ctx context.Context, actor string) ([]DebtView, error) {
	st := newStore(s.db)
	debts, err := st.debts.ListForUser(ctx, actor)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var ids []string
	for _, d := range debts {
		for _, id := range d.Members() {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	users, err := st.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := indexUsers(users)
	out := make([]DebtView, 0, len(debts))
	for _, d := range debts {
		out = append(out, NewDebtView(actor, d, byID, nil))
	}
	return out, nil
}

func indexUsers(users []*userentity.User) map[string]*userentity.User {
	out := make(map[string]*userentity.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out
}
