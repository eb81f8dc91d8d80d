package gib

import (
	"context"
	"fmt"

	"github.com/electroop-engineering/gib-esu/internal/esu"
)

// Submitter posts a payload to a registry endpoint. *Client implements it.
type Submitter interface {
	Submit(ctx context.Context, payload any, endpoint Endpoint) (*Response, error)
}

// Service exposes the registry operations for one company. Every method
// validates its payload before anything is sent, so an invalid record never
// reaches the registry.
type Service struct {
	client  Submitter
	company esu.Company
}

// NewService creates a Service submitting through client on behalf of
// company.
func NewService(client Submitter, company esu.Company) *Service {
	return &Service{client: client, company: company}
}

// Company returns the company the service registers for.
func (s *Service) Company() esu.Company {
	return s.company
}

// RegisterDevice registers a new device (/yeniEsuKayit).
func (s *Service) RegisterDevice(ctx context.Context, d esu.Device) (*Response, error) {
	return s.SubmitRegistration(ctx, esu.NewRegistrationRequest(s.company, d))
}

// SubmitRegistration sends a pre-built registration payload.
func (s *Service) SubmitRegistration(ctx context.Context, req *esu.RegistrationRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("device %s: %w", req.Device.Serial, err)
	}
	return s.client.Submit(ctx, req, EndpointRegister)
}

// RegisterOwnership sends a device's ownership status (/esuMukellefDurum).
func (s *Service) RegisterOwnership(ctx context.Context, st esu.OwnershipStatus) (*Response, error) {
	return s.SubmitOwnership(ctx, esu.NewOwnershipRequest(s.company, st))
}

// RegisterOwnershipFromParts assembles the status record from parts first.
func (s *Service) RegisterOwnershipFromParts(ctx context.Context, p esu.OwnershipParts) (*Response, error) {
	req, err := esu.OwnershipRequestFromParts(s.company, p)
	if err != nil {
		return nil, err
	}
	return s.SubmitOwnership(ctx, req)
}

// SubmitOwnership sends a pre-built ownership-status payload.
func (s *Service) SubmitOwnership(ctx context.Context, req *esu.OwnershipRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("ownership %s: %w", req.Status.Serial, err)
	}
	return s.client.Submit(ctx, req, EndpointOwnership)
}

// UpdateOwnership amends an ownership record (/esuGuncelleme).
func (s *Service) UpdateOwnership(ctx context.Context, u esu.OwnershipUpdate) (*Response, error) {
	return s.SubmitUpdate(ctx, esu.NewUpdateRequest(s.company, u))
}

// UpdateOwnershipFromParts assembles the update record from parts first.
func (s *Service) UpdateOwnershipFromParts(ctx context.Context, p esu.UpdateParts) (*Response, error) {
	req, err := esu.UpdateRequestFromParts(s.company, p)
	if err != nil {
		return nil, err
	}
	return s.SubmitUpdate(ctx, req)
}

// SubmitUpdate sends a pre-built update payload.
func (s *Service) SubmitUpdate(ctx context.Context, req *esu.UpdateRequest) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("update %s: %w", req.Update.Serial, err)
	}
	return s.client.Submit(ctx, req, EndpointUpdate)
}

// CloseDevice decommissions a device (/esuKapatma).
func (s *Service) CloseDevice(ctx context.Context, serial string) (*Response, error) {
	req := esu.NewClosureRequest(s.company, serial)
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("closure %s: %w", serial, err)
	}
	return s.client.Submit(ctx, req, EndpointClose)
}
