package middleware

import (
	"github.com/gin-gonic/gin"

	"facturio/internal/core/apperror"
	"facturio/internal/core/company"
	"facturio/internal/core/id"
)

const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
)

// CompanyScope resolves the company and user for the request and puts the
// scope into the request context. Authentication itself happens upstream;
// this layer trusts the identity headers the gateway injects and only
// enforces that a valid company is present. Every repository query is
// filtered by this scope.
func CompanyScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, err := id.Parse(c.GetHeader(HeaderCompanyID))
		if err != nil || id.IsNil(companyID) {
			_ = c.Error(apperror.NewValidation("company header is required").
				WithDetail("header", HeaderCompanyID))
			c.Abort()
			return
		}

		scope := company.Scope{CompanyID: companyID}
		if userID, err := id.Parse(c.GetHeader(HeaderUserID)); err == nil {
			scope.UserID = userID
		}

		ctx := company.WithScope(c.Request.Context(), scope)
		c.Request = c.Request.WithContext(ctx)

		c.Set("company_id", companyID.String())
		c.Next()
	}
}
