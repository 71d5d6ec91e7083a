package httpserver

import (
	"net/http"
	"strings"

	"altelier/internal/domain"
	ordersvc "altelier/internal/service/order"

	"github.com/gin-gonic/gin"
)

const idempotencyKeyHeader = "Idempotency-Key"

type createOrderRequest struct {
	Items []struct {
		ArtworkID string `json:"artworkId" binding:"required"`
		// No `required` on the int: zero must reach the service so the
		// INVALID_QUANTITY response owns that case.
		Quantity int `json:"quantity"`
	} `json:"items" binding:"required"`
	Contact struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
		Phone string `json:"phone"`
	} `json:"contact" binding:"required"`
	ShippingAddress struct {
		FirstName  string `json:"firstName"`
		LastName   string `json:"lastName"`
		Country    string `json:"country" binding:"required"`
		StreetName string `json:"streetName" binding:"required"`
		PostalCode string `json:"postalCode"`
		City       string `json:"city" binding:"required"`
	} `json:"shippingAddress" binding:"required"`
	Currency      string `json:"currency" binding:"required"`
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

func createOrderHandler(svc orderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
		if key == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": idempotencyKeyHeader + " header required"})
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		in := ordersvc.CreateInput{
			IdempotencyKey: key,
			Currency:       strings.ToUpper(req.Currency),
			PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
			Contact: domain.Contact{
				Name:  req.Contact.Name,
				Email: req.Contact.Email,
				Phone: req.Contact.Phone,
			},
			ShippingAddress: domain.Address{
				FirstName:  req.ShippingAddress.FirstName,
				LastName:   req.ShippingAddress.LastName,
				Country:    req.ShippingAddress.Country,
				StreetName: req.ShippingAddress.StreetName,
				PostalCode: req.ShippingAddress.PostalCode,
				City:       req.ShippingAddress.City,
			},
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, ordersvc.CreateItem{ArtworkID: item.ArtworkID, Quantity: item.Quantity})
		}

		order, err := svc.Create(c.Request.Context(), in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toOrderResponse(order))
	}
}

// getOrderHandler serves the public confirmation page lookup by the
// human-typeable order number.
func getOrderHandler(svc orderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		number := c.Param("orderRef")
		order, err := svc.GetByNumber(c.Request.Context(), number)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

func bankTransferHandler(svc transferService) gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := svc.Declare(c.Request.Context(), c.Param("orderRef"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}
