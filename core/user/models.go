package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/portal/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

var (
	AllRoles = []Role{RoleAdmin, RoleTeacher, RoleStudent}

	Roles = []RoleInfo{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}

	PasswordHashCost = bcrypt.DefaultCost // mockable
)

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type RoleInfo struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	Semester     int       `json:"semester,omitempty"` // students only
	Courses      []string  `json:"courses"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), PasswordHashCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

// HasCourse reports whether course is assigned to the user, taught or taken.
func (u *User) HasCourse(course string) bool {
	for _, c := range u.Courses {
		if c == course {
			return true
		}
	}
	return false
}

// record is how a User is persisted: unlike the API representation, it carries the password hash.
type record struct {
	User
	PasswordHash []byte `json:"password_hash"`
}

func toRecord(u User) record {
	return record{User: u, PasswordHash: u.PasswordHash}
}

func (r record) toUser() User {
	u := r.User
	u.PasswordHash = r.PasswordHash
	return u
}

// Session is the user currently logged in to the portal.
type Session struct {
	UserID    string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	LoginTime time.Time `json:"login_time"` // UTC
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	ID              string   `json:"id" validate:"required,alphanum"`
	Name            string   `json:"name" validate:"required,notblank"`
	Email           string   `json:"email" validate:"required,email"`
	Role            Role     `json:"role" validate:"required,userrole"`
	Semester        int      `json:"semester" validate:"omitempty,min=1,max=8"`
	Courses         []string `json:"courses" validate:"omitempty,dive,required"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"omitempty,eqfield=Password"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.ID = core.CleanString(nu.ID)
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Role = Role(core.CleanString(string(nu.Role), true /* lower */))
	nu.Courses = cleanCourses(nu.Courses)
	return validate.Struct(nu)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	Semester        *int     `json:"semester" validate:"omitempty,min=1,max=8"`
	Courses         []string `json:"courses" validate:"omitempty,dive,required"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`

	role Role // of the user being updated
}

func (uu *UpdateUser) Validate(origUsr User, validate *validator.Validate) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if uu.Courses != nil {
		uu.Courses = cleanCourses(uu.Courses)
	}
	uu.role = origUsr.Role
	return validate.Struct(uu)
}

// PasswordChange is a request from a logged in user to change their own password.
type PasswordChange struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (pc PasswordChange) Validate(validate *validator.Validate) error { return validate.Struct(pc) }

type QueryFilter struct {
	Search   string `query:"search"`
	Role     Role   `query:"role"`
	Course   string `query:"course"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Role = Role(core.CleanString(string(qf.Role), true /* lower */))
	if qf.Role == "all" {
		qf.Role = ""
	}
	qf.Course = core.CleanString(qf.Course)
}

func cleanCourses(courses []string) []string {
	out := make([]string, 0, len(courses))
	seen := make(map[string]bool, len(courses))
	for _, c := range courses {
		c = core.CleanString(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
