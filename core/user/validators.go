package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/portal/core"
)

var (
	userRoleTag  = "userrole"
	userRoleText = "invalid role"

	teacherCoursesTag  = "teachercourses"
	teacherCoursesText = "please assign at least one course to the teacher"

	studentSemesterTag  = "studentsemester"
	studentSemesterText = "please select a semester for the student"

	studentCoursesTag  = "studentcourses"
	studentCoursesText = "please assign at least one course to the student"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(userRoleTag, userRoleValidation)
	core.RegisterCustomTranslation(validate, translator, userRoleTag, userRoleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{}, UpdateUser{}, PasswordChange{})
	core.RegisterCustomTranslation(validate, translator, teacherCoursesTag, teacherCoursesText)
	core.RegisterCustomTranslation(validate, translator, studentSemesterTag, studentSemesterText)
	core.RegisterCustomTranslation(validate, translator, studentCoursesTag, studentCoursesText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

func userRoleValidation(fl validator.FieldLevel) bool {
	if role, ok := fl.Field().Interface().(Role); ok {
		return role.Valid()
	}
	return false
}

// userStructValidation does struct level validation on NewUser, UpdateUser and PasswordChange structs.
func userStructValidation(sl validator.StructLevel) {
	switch usr := sl.Current().Interface().(type) {
	case NewUser:
		validateAssignments(usr.Role, usr.Semester, usr.Courses, sl)
		validatePassword(usr.Password, sl, usr.ID, usr.Name, usr.Email)
	case UpdateUser:
		if usr.Courses != nil {
			validateCourses(usr.role, usr.Courses, sl)
		}
		if usr.Password != "" {
			validatePassword(usr.Password, sl, usr.Name, usr.Email)
		}
	case PasswordChange:
		validatePassword(usr.Password, sl)
	}
}

// validateAssignments checks that teachers teach at least one course
// and that students have a semester and at least one course.
func validateAssignments(role Role, semester int, courses []string, sl validator.StructLevel) {
	if role == RoleStudent && semester == 0 {
		sl.ReportError(semester, "semester", "Semester", studentSemesterTag, "")
	}
	validateCourses(role, courses, sl)
}

func validateCourses(role Role, courses []string, sl validator.StructLevel) {
	if len(courses) > 0 {
		return
	}
	switch role {
	case RoleTeacher:
		sl.ReportError(courses, "courses", "Courses", teacherCoursesTag, "")
	case RoleStudent:
		sl.ReportError(courses, "courses", "Courses", studentCoursesTag, "")
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 8
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd string, sl validator.StructLevel, usrAttrs ...string) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	var digitCount int

	// - minLen: 8
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		// - no whitespace
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}

	// - not all numeric
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	// - no user attrs similarity
	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(usrAttr), "")).QuickRatio()
	}
	for _, attr := range usrAttrs {
		if getRatio(pwd, attr) >= pwdMaxSim {
			reportErr(pwdAttrSimTag)
			return
		}
	}
}
