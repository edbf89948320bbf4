package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
)

// TransactionAttributes tags the nrgin transaction with the route template
// and any errors recorded on the gin context. It must run after nrgin.Middleware.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		txn := nrgin.Transaction(c)
		if txn == nil {
			return
		}

		txn.AddAttribute("route", c.FullPath())
		if id := c.Param("id"); id != "" {
			txn.AddAttribute("resource_id", id)
		}

		for _, err := range c.Errors {
			txn.NoticeError(err.Err)
		}
	}
}
