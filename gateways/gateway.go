package gateways

import (
	"fmt"

	"lms/config"
	"lms/models"
)

// RefundResult is what a gateway reports back for a refund attempt
type RefundResult struct {
	Success     bool
	Reference   string
	RawResponse []byte
	Message     string
}

// TransferResult is what a gateway reports back for a payout transfer
type TransferResult struct {
	Success     bool
	Reference   string
	RawResponse []byte
	Message     string
}

// Gateway is the capability a payment provider must offer to participate in
// refunds and payouts. Dispatch happens through the Registry; callers never
// branch on provider names.
type Gateway interface {
	Name() string
	InitiateRefund(payment *models.Payment, amount float64, reason string) (*RefundResult, error)
	InitiateTransfer(account *models.InstructorBankAccount, amount float64, narration string) (*TransferResult, error)
}

// Registry maps gateway names to implementations. It is built once at
// startup from the configured providers.
type Registry struct {
	gateways map[string]Gateway
}

func NewRegistry(cfg *config.Config) *Registry {
	return NewRegistryWith(NewPaystackGateway(cfg), NewFlutterwaveGateway(cfg))
}

// NewRegistryWith builds a registry from explicit gateways
func NewRegistryWith(gws ...Gateway) *Registry {
	r := &Registry{gateways: make(map[string]Gateway)}
	for _, g := range gws {
		r.Register(g)
	}
	return r
}

func (r *Registry) Register(g Gateway) {
	r.gateways[g.Name()] = g
}

// Get resolves the gateway a payment was made through
func (r *Registry) Get(name string) (Gateway, error) {
	g, ok := r.gateways[name]
	if !ok {
		return nil, fmt.Errorf("unsupported payment gateway: %s", name)
	}
	return g, nil
}
