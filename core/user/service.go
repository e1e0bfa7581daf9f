package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/trezcool/portal/core"
)

var (
	// errors
	ErrNotFound        = errors.New("user not found")
	ErrIDExists        = errors.New("a user with this ID already exists")
	ErrNoRoleMatch     = errors.New("user not found: please check your ID and role")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInactive        = errors.New("account is inactive")
	ErrNoSession       = errors.New("no user logged in")

	NowFunc = time.Now // mockable
)

// Service manages portal users and the current login session, both kept in a core.RecordStore.
type Service struct {
	store  core.RecordStore
	logger core.Logger
}

func NewService(store core.RecordStore, logger core.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (svc *Service) load(ctx context.Context) ([]record, error) {
	var recs []record
	if _, err := core.LoadJSON(ctx, svc.store, core.Users, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (svc *Service) update(ctx context.Context, fn func([]record) ([]record, error)) error {
	return core.UpdateJSON(ctx, svc.store, core.Users,
		func() interface{} { return new([]record) },
		func(v interface{}) error {
			recs := v.(*[]record)
			out, err := fn(*recs)
			if err != nil {
				return err
			}
			*recs = out
			return nil
		},
	)
}

// modify applies fn to the user identified by id and stores the result.
func (svc *Service) modify(ctx context.Context, id string, fn func(*User) error) (User, error) {
	var usr User
	err := svc.update(ctx, func(recs []record) ([]record, error) {
		for i := range recs {
			if recs[i].ID != id {
				continue
			}
			u := recs[i].toUser()
			if err := fn(&u); err != nil {
				return nil, err
			}
			recs[i] = toRecord(u)
			usr = u
			return recs, nil
		}
		return nil, ErrNotFound
	})
	return usr, err
}

func newUser(nu NewUser, now time.Time) (User, error) {
	usr := User{
		ID:        nu.ID,
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      nu.Role,
		IsActive:  true,
		Courses:   nu.Courses,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if usr.IsStudent() {
		usr.Semester = nu.Semester
	}
	if usr.Courses == nil {
		usr.Courses = []string{}
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, pkgerrors.Wrap(err, "hashing password")
	}
	return usr, nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	users, err := svc.CreateMany(ctx, nu)
	if err != nil {
		return User{}, err
	}
	return users[0], nil
}

// CreateMany creates every user in a single write: either all are created or none is.
// IDs must be unique among them and among existing users, case-insensitively.
func (svc *Service) CreateMany(ctx context.Context, nus ...NewUser) ([]User, error) {
	now := NowFunc().UTC()
	users := make([]User, 0, len(nus))
	for _, nu := range nus {
		usr, err := newUser(nu, now)
		if err != nil {
			return nil, err
		}
		users = append(users, usr)
	}

	err := svc.update(ctx, func(recs []record) ([]record, error) {
		for _, usr := range users {
			for _, r := range recs {
				if strings.EqualFold(r.ID, usr.ID) {
					return nil, core.NewValidationError(ErrIDExists, core.FieldError{Field: "id", Error: ErrIDExists.Error()})
				}
			}
			recs = append(recs, toRecord(usr))
		}
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	for _, usr := range users {
		svc.logger.Info(fmt.Sprintf("user created: %s (%s)", usr.ID, usr.Role))
	}
	return users, nil
}

// Query returns the users matching filter, ordered by ID.
// QueryFilter.Search does a case-insensitive match on one of User.ID, User.Name or User.Email.
func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	recs, err := svc.load(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(recs))
	for _, r := range recs {
		usr := r.toUser()
		if matches(usr, filter) {
			users = append(users, usr)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func matches(usr User, qf QueryFilter) bool {
	if qf.Role != "" && usr.Role != qf.Role {
		return false
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if qf.Course != "" && !usr.HasCourse(qf.Course) {
		return false
	}
	if qf.Search != "" {
		s := strings.ToLower(qf.Search)
		return strings.Contains(strings.ToLower(usr.ID), s) ||
			strings.Contains(strings.ToLower(usr.Name), s) ||
			strings.Contains(strings.ToLower(usr.Email), s)
	}
	return true
}

func (svc *Service) QueryByRole(ctx context.Context, role Role) ([]User, error) {
	return svc.Query(ctx, QueryFilter{Role: role})
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	recs, err := svc.load(ctx)
	if err != nil {
		return User{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r.toUser(), nil
		}
	}
	return User{}, ErrNotFound
}

func (svc *Service) Update(ctx context.Context, id string, uu UpdateUser) (User, error) {
	usr, err := svc.modify(ctx, id, func(u *User) error {
		u.Name = uu.Name
		u.Email = uu.Email
		if uu.IsActive != nil {
			u.IsActive = *uu.IsActive
		}
		if uu.Courses != nil {
			u.Courses = uu.Courses
		}
		if uu.Semester != nil && u.IsStudent() {
			u.Semester = *uu.Semester
		}
		if uu.Password != "" {
			if err := u.SetPassword(uu.Password); err != nil {
				return pkgerrors.Wrap(err, "hashing password")
			}
		}
		u.UpdatedAt = NowFunc().UTC()
		return nil
	})
	if err != nil {
		return User{}, err
	}
	svc.logger.Info(fmt.Sprintf("user updated: %s", id))
	return usr, nil
}

// SetPassword replaces the password of the user identified by id, without applying the password policy.
func (svc *Service) SetPassword(ctx context.Context, id, pwd string) error {
	_, err := svc.modify(ctx, id, func(u *User) error {
		if err := u.SetPassword(pwd); err != nil {
			return pkgerrors.Wrap(err, "hashing password")
		}
		u.UpdatedAt = NowFunc().UTC()
		return nil
	})
	return err
}

// ChangePassword replaces the password of a user who knows their current one.
func (svc *Service) ChangePassword(ctx context.Context, id string, pc PasswordChange) error {
	_, err := svc.modify(ctx, id, func(u *User) error {
		if err := u.CheckPassword(pc.OldPassword); err != nil {
			return core.NewValidationError(ErrInvalidPassword, core.FieldError{Field: "old_password", Error: ErrInvalidPassword.Error()})
		}
		if err := u.SetPassword(pc.Password); err != nil {
			return pkgerrors.Wrap(err, "hashing password")
		}
		u.UpdatedAt = NowFunc().UTC()
		return nil
	})
	return err
}

// Delete removes the users with the given IDs; unknown IDs are ignored.
func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}

	var deleted int
	err := svc.update(ctx, func(recs []record) ([]record, error) {
		deleted = 0
		out := make([]record, 0, len(recs))
		for _, r := range recs {
			if toDelete[r.ID] {
				deleted++
				continue
			}
			out = append(out, r)
		}
		return out, nil
	})
	if err != nil {
		return err
	}
	if deleted > 0 {
		svc.logger.Info(fmt.Sprintf("%d user(s) deleted", deleted))
	}
	return nil
}

// Login authenticates a user of the given role. IDs are matched case-insensitively.
// On success, the user becomes the current session.
func (svc *Service) Login(ctx context.Context, id, pwd string, role Role) (User, error) {
	id = core.CleanString(id)

	var usr User
	err := svc.update(ctx, func(recs []record) ([]record, error) {
		for i, r := range recs {
			if !strings.EqualFold(r.ID, id) || r.Role != role {
				continue
			}
			u := r.toUser()
			if err := u.CheckPassword(pwd); err != nil {
				return nil, ErrInvalidPassword
			}
			if !u.IsActive {
				return nil, ErrInactive
			}
			u.LastLogin = NowFunc().UTC()
			recs[i] = toRecord(u)
			usr = u
			return recs, nil
		}
		return nil, ErrNoRoleMatch
	})
	if err != nil {
		return User{}, err
	}

	sess := Session{
		UserID:    usr.ID,
		Name:      usr.Name,
		Email:     usr.Email,
		Role:      usr.Role,
		LoginTime: usr.LastLogin,
	}
	if err := core.SaveJSON(ctx, svc.store, core.CurrentSession, sess); err != nil {
		return User{}, err
	}
	svc.logger.Info(fmt.Sprintf("user logged in: %s (%s)", usr.ID, usr.Role))
	return usr, nil
}

// CurrentSession returns the logged in user, or ErrNoSession.
func (svc *Service) CurrentSession(ctx context.Context) (Session, error) {
	var sess Session
	found, err := core.LoadJSON(ctx, svc.store, core.CurrentSession, &sess)
	if err != nil {
		return Session{}, err
	}
	if !found {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (svc *Service) Logout(ctx context.Context) error {
	if err := svc.store.Delete(ctx, core.CurrentSession); err != nil {
		return core.NewPersistenceError("delete", core.CurrentSession, err)
	}
	return nil
}
