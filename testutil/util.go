package testutil

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/portal/core"
	"github.com/trezcool/portal/core/user"
	logsvc "github.com/trezcool/portal/services/logger"
	"github.com/trezcool/portal/storage/memstore"
)

func init() {
	user.PasswordHashCost = bcrypt.MinCost
}

// Logger discards everything.
func Logger() core.Logger {
	return logsvc.NewNopLogger()
}

// OpenStore returns an empty in-memory store.
func OpenStore(t *testing.T) *memstore.Store {
	t.Helper()
	return memstore.Open()
}

// NewValidator returns a validator with every portal validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// CreateUser stores a user straight through the service, bypassing request validation.
func CreateUser(
	t *testing.T,
	svc *user.Service,
	id, name, email, pwd string,
	role user.Role,
	isActive bool,
	courses ...string,
) user.User {
	t.Helper()
	ctx := context.Background()

	nu := user.NewUser{
		ID:       id,
		Name:     name,
		Email:    email,
		Role:     role,
		Courses:  courses,
		Password: pwd,
	}
	if role == user.RoleStudent {
		nu.Semester = 1
	}
	usr, err := svc.Create(ctx, nu)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if !isActive {
		inactive := false
		usr, err = svc.Update(ctx, usr.ID, user.UpdateUser{Name: usr.Name, Email: usr.Email, IsActive: &inactive})
		if err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	return usr
}
