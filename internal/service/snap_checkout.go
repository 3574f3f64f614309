package service

import (
	"fmt"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/certready/certready-backend/internal/model"
)

// SnapCheckout opens Midtrans Snap checkout sessions for processor-origin
// transactions. The transaction's ExternalRef doubles as the Snap OrderID,
// which is what confirmation webhooks hand back.
type SnapCheckout struct {
	client snap.Client
}

// NewSnapCheckout creates a Snap client against the sandbox or production
// environment depending on useProduction.
func NewSnapCheckout(serverKey string, useProduction bool) *SnapCheckout {
	c := &SnapCheckout{}
	env := midtrans.Sandbox
	if useProduction {
		env = midtrans.Production
	}
	c.client.New(serverKey, env)
	return c
}

// CreateCheckout opens a checkout session and returns the redirect URL the
// client should be sent to.
func (c *SnapCheckout) CreateCheckout(t *model.Transaction, user *model.User, product *model.AccessProduct) (string, error) {
	if t.ExternalRef == nil || *t.ExternalRef == "" {
		return "", fmt.Errorf("transaction %s has no external ref", t.ID)
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  *t.ExternalRef,
			GrossAmt: t.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: user.Name,
			Email: user.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       product.Code,
				Price:    t.Amount,
				Qty:      1,
				Name:     product.Name,
				Category: string(product.Category),
			},
		},
	}

	resp, err := c.client.CreateTransaction(req)
	if err != nil {
		return "", fmt.Errorf("create snap transaction: %w", err)
	}
	return resp.RedirectURL, nil
}
