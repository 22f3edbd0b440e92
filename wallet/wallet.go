// Package wallet reads the caller's API credit and prepaid package.
package wallet

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/lukasbauer/fishaudio/transport"
)

const (
	CreditPath  = "/wallet/self/api-credit"
	PackagePath = "/wallet/self/package"
)

// Credit is the API credit balance. The service reports it as a decimal
// string.
type Credit struct {
	ID            string    `json:"_id"`
	UserID        string    `json:"user_id"`
	Credit        string    `json:"credit"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	HasPhoneSHA   *bool     `json:"has_phone_sha256,omitempty"`
	HasFreeCredit *bool     `json:"has_free_credit,omitempty"`
}

// Amount parses Credit as a float.
func (c *Credit) Amount() (float64, error) {
	return strconv.ParseFloat(c.Credit, 64)
}

// Package is a prepaid usage package.
type Package struct {
	ID         string     `json:"_id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Total      int        `json:"total"`
	Balance    int        `json:"balance"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at"`
}

// Service calls the wallet endpoints.
type Service struct {
	transport *transport.Client
}

// NewService creates a wallet service on top of t.
func NewService(t *transport.Client) *Service {
	return &Service{transport: t}
}

// Credit returns the current API credit. checkFreeCredit asks the service to
// report whether free credit is still available.
func (s *Service) Credit(ctx context.Context, checkFreeCredit bool) (*Credit, error) {
	var q transport.Query
	if checkFreeCredit {
		q = transport.Query{"checkFreeCredit": true}
	}

	var c Credit
	err := s.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   CreditPath,
		Query:  q,
	}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Package returns the current prepaid package.
func (s *Service) Package(ctx context.Context) (*Package, error) {
	var p Package
	err := s.transport.Do(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   PackagePath,
	}, &p)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
