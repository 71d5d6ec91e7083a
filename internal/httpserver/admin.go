package httpserver

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// adminAuth guards the manual bank-transfer resolution endpoints with a
// static bearer token. An empty configured token disables the surface.
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin surface disabled"})
			return
		}
		presented := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}

type markPaidRequest struct {
	PaymentReference string `json:"paymentReference"`
}

func adminMarkPaidHandler(svc transferService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markPaidRequest
		// Body is optional; the reference defaults to the bank statement
		// being matched offline.
		_ = c.ShouldBindJSON(&req)

		order, err := svc.MarkPaid(c.Request.Context(), c.Param("orderID"), req.PaymentReference)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

func adminCancelHandler(svc transferService) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := svc.Cancel(c.Request.Context(), c.Param("orderID"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}
