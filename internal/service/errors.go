package service

import "errors"

var (
	ErrMissingCredentials  = errors.New("請提供電子郵件和密碼")
	ErrInvalidCredentials  = errors.New("電子郵件或密碼錯誤")
	ErrForbidden           = errors.New("無權限訪問")
	ErrCreateUserForbidden = errors.New("無權限創建用戶")
	ErrRoleForbidden       = errors.New("無權限創建此角色")
	ErrMissingUserFields   = errors.New("請提供電子郵件、密碼和姓名")
	ErrInvalidRole         = errors.New("無效的角色")
	ErrCompanyRequired     = errors.New("請指定公司")
	ErrCompanyNotFound     = errors.New("公司不存在")
	ErrNoCompany           = errors.New("您不屬於任何公司")
	ErrEmailTaken          = errors.New("該電子郵件已被使用")
	ErrCompanyNameRequired = errors.New("請提供公司名稱")
	ErrDomainTaken         = errors.New("該域名已被使用")
)

// IsValidation reports whether err is a caller mistake rather than a failure
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingCredentials, ErrMissingUserFields, ErrInvalidRole, ErrCompanyRequired,
		ErrCompanyNotFound, ErrNoCompany, ErrEmailTaken, ErrCompanyNameRequired, ErrDomainTaken,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsForbidden reports whether err denies the caller's role
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) || errors.Is(err, ErrCreateUserForbidden) || errors.Is(err, ErrRoleForbidden)
}
