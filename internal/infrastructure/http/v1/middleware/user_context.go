package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "kardex/internal/core/context"
	"kardex/internal/core/id"
)

const (
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
	HeaderUsername  = "X-Username"
)

// UserContext resolves the acting user and company from request headers
// and seeds them into the request context. Identity is established by the
// gateway in front of this service; here the headers are taken as-is.
//
// Invalid or missing header values leave the corresponding field nil;
// handlers that require a company respond with a validation error.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := &appctx.UserContext{
			Username: c.GetHeader(HeaderUsername),
		}

		if companyID, err := id.Parse(c.GetHeader(HeaderCompanyID)); err == nil {
			user.CompanyID = companyID
		}
		if userID, err := id.Parse(c.GetHeader(HeaderUserID)); err == nil {
			user.UserID = userID
		}

		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
